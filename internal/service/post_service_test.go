package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytree/internal/apperr"
	"familytree/internal/models"
)

type postFixture struct {
	env      *testEnv
	admin    int64
	author   int64
	viewer   int64
	outsider int64
	family   *models.Family
	public   *models.Post
	familyP  *models.Post
	subP     *models.Post
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &postFixture{
		env:      env,
		admin:    env.member(t, "Admin"),
		author:   env.member(t, "Author"),
		viewer:   env.member(t, "Viewer"),
		outsider: env.member(t, "Outsider"),
	}
	f.family = env.family(t, f.admin, "Smiths")
	env.join(t, f.admin, f.family.ID, f.author)
	env.join(t, f.admin, f.family.ID, f.viewer)

	var err error
	f.public, err = env.posts.CreatePost(f.author, PostInput{Content: "Hello world", Visibility: models.VisibilityPublic})
	require.NoError(t, err)
	f.familyP, err = env.posts.CreatePost(f.author, PostInput{Content: "Family news", Visibility: models.VisibilityFamily, FamilyID: &f.family.ID})
	require.NoError(t, err)
	f.subP, err = env.posts.CreatePost(f.author, PostInput{Content: "Branch news", Visibility: models.VisibilitySubFamily})
	require.NoError(t, err)
	return f
}

func postIDs(posts []models.Post) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestFeedVisibility(t *testing.T) {
	f := newPostFixture(t)

	feed, err := f.env.posts.ListFeed(f.viewer, Page{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{f.public.ID, f.familyP.ID, f.subP.ID}, postIDs(feed))

	outsiderFeed, err := f.env.posts.ListFeed(f.outsider, Page{})
	require.NoError(t, err)
	assert.Equal(t, []int64{f.public.ID}, postIDs(outsiderFeed))

	_, err = f.env.posts.GetPost(f.outsider, f.familyP.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.env.posts.GetPost(f.viewer, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	// Posts to a family the viewer is not in stay hidden
	other := f.env.member(t, "Other")
	otherFamily := f.env.family(t, other, "Others")
	hidden, err := f.env.posts.CreatePost(other, PostInput{Content: "Private", FamilyID: &otherFamily.ID})
	require.NoError(t, err)
	feed, err = f.env.posts.ListFeed(f.viewer, Page{})
	require.NoError(t, err)
	assert.NotContains(t, postIDs(feed), hidden.ID)

	_, err = f.env.posts.CreatePost(f.viewer, PostInput{Content: "Intrude", FamilyID: &otherFamily.ID})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.env.posts.ListFamilyPosts(f.outsider, f.family.ID, Page{})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	familyPosts, err := f.env.posts.ListFamilyPosts(f.viewer, f.family.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, []int64{f.familyP.ID}, postIDs(familyPosts))
}

func TestListMemberPosts(t *testing.T) {
	f := newPostFixture(t)

	posts, err := f.env.posts.ListMemberPosts(f.viewer, f.author, Page{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{f.public.ID, f.familyP.ID, f.subP.ID}, postIDs(posts))

	posts, err = f.env.posts.ListMemberPosts(f.outsider, f.author, Page{})
	require.NoError(t, err)
	assert.Equal(t, []int64{f.public.ID}, postIDs(posts), "strangers only see public posts")

	posts, err = f.env.posts.ListMemberPosts(f.viewer, f.admin, Page{})
	require.NoError(t, err)
	assert.Empty(t, posts)

	_, err = f.env.posts.ListMemberPosts(f.viewer, 9999, Page{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestFeedPagination(t *testing.T) {
	f := newPostFixture(t)

	first, err := f.env.posts.ListFeed(f.viewer, Page{Limit: 2})
	require.NoError(t, err)
	second, err := f.env.posts.ListFeed(f.viewer, Page{Limit: 2, Offset: 2})
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Len(t, second, 1)
	assert.NotContains(t, postIDs(first), second[0].ID)
}

func TestToggleLike(t *testing.T) {
	f := newPostFixture(t)

	result, err := f.env.posts.ToggleLike(f.viewer, f.familyP.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.LikesCount)

	post, err := f.env.posts.GetPost(f.viewer, f.familyP.ID)
	require.NoError(t, err)
	assert.True(t, post.LikedByViewer)

	notes := f.env.notificationsFor(t, f.author)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationPostLiked, notes[0].Type)

	result, err = f.env.posts.ToggleLike(f.viewer, f.familyP.ID)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.LikesCount)

	_, err = f.env.posts.ToggleLike(f.outsider, f.familyP.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestUpdateAndDeletePost(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.env.posts.UpdatePost(f.viewer, f.familyP.ID, PostInput{Content: "Edited"})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	updated, err := f.env.posts.UpdatePost(f.author, f.familyP.ID, PostInput{Content: "Edited"})
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Content)
	assert.Equal(t, models.VisibilityFamily, updated.Visibility, "visibility is kept when omitted")

	_, err = f.env.posts.UpdatePost(f.author, f.familyP.ID, PostInput{Content: "Edited", Visibility: "SECRET"})
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))

	err = f.env.posts.DeletePost(f.viewer, f.familyP.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	err = f.env.posts.DeletePost(f.admin, f.public.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "admins moderate family posts only")

	require.NoError(t, f.env.posts.DeletePost(f.admin, f.familyP.ID))
	require.NoError(t, f.env.posts.DeletePost(f.author, f.public.ID))

	_, err = f.env.posts.GetPost(f.author, f.public.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
