package publication

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"anoa.com/folio/internal/entity"
	publicationDto "anoa.com/folio/internal/modules/publication/dto"
	publicationRepo "anoa.com/folio/internal/modules/publication/repository"
	userRepo "anoa.com/folio/internal/modules/user/repository"
	"anoa.com/folio/internal/testutil"
	"anoa.com/folio/pkg/apperror"
	"anoa.com/folio/pkg/logger"
	"anoa.com/folio/pkg/ratelimiter"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	indexed map[uuid.UUID]string
	deleted []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: map[uuid.UUID]string{}}
}

func (f *fakeIndex) IndexPublication(pub *entity.Publication) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[pub.ID] = pub.Title
	return nil
}

func (f *fakeIndex) DeletePublication(id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeIndex) SearchPublications(query string, limit int64) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	if int64(len(f.hits)) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fixture struct {
	svc   PublicationService
	users userRepo.UserRepository
	index *fakeIndex
	clock time.Time
}

func newFixture(t *testing.T, rdb *redis.Client, limits Limits) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	users := userRepo.NewUserRepository(db)
	index := newFakeIndex()

	f := &fixture{
		users: users,
		index: index,
		clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	svc := NewPublicationService(publicationRepo.NewPublicationRepository(db), users, index, rdb, limits)
	// each write happens one minute after the previous one
	svc.(*publicationService).now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	f.svc = svc
	return f
}

func (f *fixture) createUser(t *testing.T, username string) uuid.UUID {
	t.Helper()
	avatar := "https://www.gravatar.com/avatar/" + username
	u := &entity.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Birthdate:    time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		AvatarURL:    &avatar,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) publish(t *testing.T, userID uuid.UUID, title string) *entity.Publication {
	t.Helper()
	pub, err := f.svc.Create(context.Background(), userID, publicationDto.CreatePublicationInput{
		Title: title,
		Text:  "a body long enough to pass validation",
	})
	require.NoError(t, err)
	return pub
}

func TestCreate(t *testing.T) {
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")

	pub := f.publish(t, author, "  First post  ")
	assert.Equal(t, "First post", pub.Title)
	assert.Equal(t, author, pub.UserID)
	assert.Equal(t, "writer01", pub.Author)
	require.NotNil(t, pub.Avatar)
	assert.Equal(t, "https://www.gravatar.com/avatar/writer01", *pub.Avatar)
	assert.NotNil(t, pub.Ratings)
	assert.NotNil(t, pub.Comments)
	assert.Equal(t, "First post", f.index.indexed[pub.ID])
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")

	tests := []struct {
		name  string
		input publicationDto.CreatePublicationInput
		msg   string
	}{
		{"short title", publicationDto.CreatePublicationInput{Title: "Hey", Text: "long enough text"}, "Too short title!"},
		{"blank title", publicationDto.CreatePublicationInput{Title: "   ", Text: "long enough text"}, "Required! Must include a title"},
		{"short text", publicationDto.CreatePublicationInput{Title: "Good title", Text: "short"}, "Too short text!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), author, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
			assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))
		})
	}

	_, err := f.svc.Create(context.Background(), uuid.New(), publicationDto.CreatePublicationInput{Title: "Ghost post", Text: "written by nobody at all"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestIndexFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")
	f.index.err = errors.New("meilisearch down")

	pub := f.publish(t, author, "Still saved")
	got, err := f.svc.GetByID(context.Background(), pub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Still saved", got.Title)
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	alice := f.createUser(t, "alice001")
	bob := f.createUser(t, "bobby001")

	first := f.publish(t, alice, "Alice one")
	second := f.publish(t, bob, "Bobby one")
	third := f.publish(t, alice, "Alice two")

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{third.ID, second.ID, first.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	mine, err := f.svc.ListByAuthor(ctx, alice.String())
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
}

func TestListByAuthorNone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	quiet := f.createUser(t, "quiet001")

	_, err := f.svc.ListByAuthor(ctx, quiet.String())
	require.ErrorIs(t, err, ErrAuthorHasNone)
	assert.Equal(t, http.StatusNotFound, apperror.MapErrorToStatus(err))

	_, err = f.svc.ListByAuthor(ctx, "garbage")
	assert.ErrorIs(t, err, ErrAuthorHasNone)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestGetByIDNotFound(t *testing.T) {
	f := newFixture(t, nil, Limits{})

	for _, raw := range []string{uuid.NewString(), "not-an-id"} {
		_, err := f.svc.GetByID(context.Background(), raw)
		require.ErrorIs(t, err, ErrPublicationNotFound)
		assert.Equal(t, http.StatusNotFound, apperror.MapErrorToStatus(err))
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")
	other := f.createUser(t, "reader01")
	pub := f.publish(t, author, "Original title")

	updated, err := f.svc.Update(ctx, pub.ID.String(), author, publicationDto.UpdatePublicationInput{Title: "Renamed title"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed title", updated.Title)
	assert.Equal(t, pub.Text, updated.Text)
	assert.Equal(t, "Renamed title", f.index.indexed[pub.ID])

	_, err = f.svc.Update(ctx, pub.ID.String(), author, publicationDto.UpdatePublicationInput{Text: "tiny"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	for _, blank := range []publicationDto.UpdatePublicationInput{{Title: "     "}, {Text: "\t\t\t\t\t\t\t\t\t\t"}} {
		_, err = f.svc.Update(ctx, pub.ID.String(), author, blank)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	}
	current, err := f.svc.GetByID(ctx, pub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Renamed title", current.Title)

	_, err = f.svc.Update(ctx, pub.ID.String(), other, publicationDto.UpdatePublicationInput{Title: "Hijacked title"})
	require.ErrorIs(t, err, ErrNotAuthor)
	assert.Equal(t, http.StatusUnauthorized, apperror.MapErrorToStatus(err))

	_, err = f.svc.Update(ctx, uuid.NewString(), author, publicationDto.UpdatePublicationInput{Title: "Nowhere title"})
	assert.ErrorIs(t, err, ErrPublicationNotFound)

	unchanged, err := f.svc.Update(ctx, pub.ID.String(), author, publicationDto.UpdatePublicationInput{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed title", unchanged.Title)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")
	other := f.createUser(t, "reader01")
	pub := f.publish(t, author, "Doomed post")

	_, err := f.svc.AddRating(ctx, pub.ID.String(), other, 4)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, pub.ID.String(), other, "nice")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, pub.ID.String(), other)
	require.ErrorIs(t, err, ErrNotAuthor)

	require.NoError(t, f.svc.Delete(ctx, pub.ID.String(), author))
	assert.Equal(t, []uuid.UUID{pub.ID}, f.index.deleted)

	_, err = f.svc.GetByID(ctx, pub.ID.String())
	assert.ErrorIs(t, err, ErrPublicationNotFound)

	err = f.svc.Delete(ctx, pub.ID.String(), author)
	assert.ErrorIs(t, err, ErrPublicationNotFound)
}

func TestAddRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")
	rater := f.createUser(t, "reader01")
	pub := f.publish(t, author, "Rate me please")

	tests := []struct {
		name    string
		rate    float64
		wantErr bool
	}{
		{"lower bound", 0, false},
		{"upper bound", 5, false},
		{"fraction", 3.5, false},
		{"below range", -0.1, true},
		{"above range", 5.1, true},
	}

	accepted := 0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratings, err := f.svc.AddRating(ctx, pub.ID.String(), rater, tt.rate)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrRateOutOfRange)
				assert.Equal(t, "Rate must be between 0 and 5!", err.Error())
				return
			}
			require.NoError(t, err)
			accepted++
			// the same user may rate again; every rating is kept in order
			require.Len(t, ratings, accepted)
			assert.Equal(t, tt.rate, ratings[accepted-1].Rate)
			assert.Equal(t, rater, ratings[accepted-1].UserID)
		})
	}

	_, err := f.svc.AddRating(ctx, uuid.NewString(), rater, 3)
	assert.ErrorIs(t, err, ErrPublicationNotFound)
}

func TestListFeatured(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")
	rater := f.createUser(t, "reader01")

	loved := f.publish(t, author, "Loved publication")
	meh := f.publish(t, author, "Meh publication")
	edge := f.publish(t, author, "Edge publication")
	f.publish(t, author, "Unrated publication")

	_, err := f.svc.AddRating(ctx, loved.ID.String(), rater, 1)
	require.NoError(t, err)
	_, err = f.svc.AddRating(ctx, loved.ID.String(), rater, 5)
	require.NoError(t, err)
	_, err = f.svc.AddRating(ctx, meh.ID.String(), rater, 4.4)
	require.NoError(t, err)
	_, err = f.svc.AddRating(ctx, edge.ID.String(), rater, 4.5)
	require.NoError(t, err)

	featured, err := f.svc.ListFeatured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, edge.ID, featured[0].ID)
	assert.Equal(t, loved.ID, featured[1].ID)
	// all ratings are returned, not only the qualifying one
	assert.Len(t, featured[1].Ratings, 2)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")
	reader := f.createUser(t, "reader01")
	pub := f.publish(t, author, "Discuss this")

	comments, err := f.svc.AddComment(ctx, pub.ID.String(), reader, "first!")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "reader01", comments[0].Author)

	comments, err = f.svc.AddComment(ctx, pub.ID.String(), reader, "second")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Text, "newest comment first")
	firstComment := comments[1]

	_, err = f.svc.AddComment(ctx, pub.ID.String(), reader, "   ")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.AddComment(ctx, uuid.NewString(), reader, "lost")
	assert.ErrorIs(t, err, ErrPublicationNotFound)

	_, err = f.svc.DeleteComment(ctx, pub.ID.String(), firstComment.ID.String(), author)
	require.ErrorIs(t, err, ErrNotAuthor)

	// the exact comment is removed, not the requester's first one
	comments, err = f.svc.DeleteComment(ctx, pub.ID.String(), firstComment.ID.String(), reader)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "second", comments[0].Text)

	_, err = f.svc.DeleteComment(ctx, pub.ID.String(), firstComment.ID.String(), reader)
	require.ErrorIs(t, err, ErrCommentNotFound)
	assert.Equal(t, http.StatusNotFound, apperror.MapErrorToStatus(err))

	_, err = f.svc.DeleteComment(ctx, pub.ID.String(), "nope", reader)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	got, err := f.svc.GetByID(ctx, pub.ID.String())
	require.NoError(t, err)
	assert.Len(t, got.Comments, 1)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, Limits{})
	author := f.createUser(t, "writer01")
	older := f.publish(t, author, "Gophers at work")
	newer := f.publish(t, author, "Gophers at rest")
	f.publish(t, author, "Something else")

	f.index.hits = []uuid.UUID{older.ID, newer.ID, uuid.New()}

	res, err := f.svc.Search(ctx, publicationDto.SearchFilter{Query: "gophers"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, newer.ID, res[0].ID)
	assert.Equal(t, older.ID, res[1].ID)

	res, err = f.svc.Search(ctx, publicationDto.SearchFilter{Query: "gophers", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res, 1)

	res, err = f.svc.Search(ctx, publicationDto.SearchFilter{Query: "  "})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchWithoutIndex(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewPublicationService(publicationRepo.NewPublicationRepository(db), userRepo.NewUserRepository(db), nil, nil, Limits{})

	res, err := svc.Search(context.Background(), publicationDto.SearchFilter{Query: "anything"})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestThrottledWrites(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t, rdb, Limits{
		Publication: 30 * time.Second,
		Comment:     5 * time.Second,
		Rating:      2 * time.Second,
	})
	author := f.createUser(t, "writer01")
	pub := f.publish(t, author, "Throttled post")

	_, err := f.svc.Create(ctx, author, publicationDto.CreatePublicationInput{Title: "Too soon title", Text: "this one comes too fast"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)
	assert.Equal(t, http.StatusTooManyRequests, apperror.MapErrorToStatus(err))
	var rateErr *ratelimiter.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 30*time.Second, rateErr.RetryAfter)

	_, err = f.svc.AddComment(ctx, pub.ID.String(), author, "one")
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, pub.ID.String(), author, "two")
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)

	// ratings have their own cooldown
	_, err = f.svc.AddRating(ctx, pub.ID.String(), author, 5)
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)
	_, err = f.svc.AddComment(ctx, pub.ID.String(), author, "three")
	assert.NoError(t, err)

	// an invalid request does not consume the cooldown
	mr.FastForward(31 * time.Second)
	_, err = f.svc.Create(ctx, author, publicationDto.CreatePublicationInput{Title: "Bad", Text: "this title is too short"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	f.publish(t, author, "Later post")
}

type failingDel struct{}

func (failingDel) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failingDel) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "del" {
			err := errors.New("connection reset")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failingDel) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestReleaseThrottleLogsFailure(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	previous := logger.Get()
	l, hook := logtest.NewNullLogger()
	logger.Set(l)
	t.Cleanup(func() { logger.Set(previous) })

	userID := uuid.New()
	require.NoError(t, ratelimiter.Throttle(ctx, rdb, userID, "comment", time.Minute))
	rdb.AddHook(failingDel{})

	s := &publicationService{redisClient: rdb}
	s.releaseThrottle(ctx, userID, "comment")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "comment", entry.Data["action"])
	assert.True(t, mr.Exists("rate_limit:user:"+userID.String()+":comment"))
}
