package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"familytree/internal/access"
	"familytree/internal/config"
	"familytree/internal/database"
	"familytree/internal/logger"
	"familytree/internal/repository"
	"familytree/internal/service"
	"familytree/migrations"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	// Keep the schema current so old backups restore into the latest tables
	if _, err := db.RunMigrations(migrations.Source(cfg.MigrationsPath)); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	repos := repository.NewRepositories(db)
	backupService := service.NewBackupService(db, service.NewTransactor(db), access.NewPolicy(repos.Memberships, repos.Members), log)

	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		handleExport(log, backupService, *exportOutput)

	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(log, backupService, *importInput, *importClear, *importYes)

	case "stats":
		handleStats(log, backupService)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(log *logger.Logger, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("failed to create output directory", "error", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		log.Fatal("failed to create output file", "path", outputPath, "error", err)
	}
	defer f.Close()

	log.Info("exporting database", "path", outputPath)
	if err := backupService.Export(f); err != nil {
		log.Fatal("export failed", "error", err)
	}

	info, err := f.Stat()
	if err == nil {
		log.Info("export complete", "size_mb", fmt.Sprintf("%.2f", float64(info.Size())/1024/1024))
	}
}

func handleImport(log *logger.Logger, backupService *service.BackupService, inputPath string, clearData, skipConfirm bool) {
	f, err := os.Open(inputPath)
	if err != nil {
		log.Fatal("failed to open input file", "path", inputPath, "error", err)
	}
	defer f.Close()

	if clearData && !skipConfirm {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		_, _ = fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info("import cancelled")
			return
		}
	}

	log.Info("importing database", "path", inputPath, "clear", clearData)
	data, err := backupService.Import(f, clearData)
	if err != nil {
		log.Fatal("import failed", "error", err)
	}
	log.Info("import complete",
		"members", len(data.Members),
		"users", len(data.Users),
		"families", len(data.Families),
		"posts", len(data.Posts),
		"comments", len(data.Comments),
	)
}

func handleStats(log *logger.Logger, backupService *service.BackupService) {
	stats, err := backupService.Stats()
	if err != nil {
		log.Fatal("failed to read stats", "error", err)
	}
	for table, n := range stats {
		fmt.Printf("%-20s %d\n", table, n)
	}
}

func printUsage() {
	fmt.Println("Family Tree Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println("  backup import [options]    Import database from JSON file")
	fmt.Println("  backup stats               Print row counts per table")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println("  -yes              Do not ask for confirmation when clearing")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./familytree.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  MIGRATIONS_PATH  Directory with sqlite/, postgres/ and mysql/ migrations (default: embedded)")
}
