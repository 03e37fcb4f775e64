//go:build integration

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/persistence"
	"github.com/creator-sync/internal/snapshot"
	"github.com/creator-sync/internal/types"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *PostgresDB

	accounts *AccountRepository
	videos   *VideoRepository
	members  *MembershipRepository
	writer   *BatchWriter
}

var testScope = models.Scope{OrgID: "org-1", ProjectID: "proj-1"}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../migrations/postgres")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("creator_sync"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(NewMigrator(connStr, migrationsPath).Up())

	db, err := ConnectPostgres(s.ctx, connStr, 5)
	s.Require().NoError(err)
	s.db = db

	s.accounts = NewAccountRepository(db)
	s.videos = NewVideoRepository(db)
	s.members = NewMembershipRepository(db)
	s.writer = NewBatchWriter(db)
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	for _, table := range []string{"recent_activity", "video_snapshots", "videos", "tracked_accounts", "org_members"} {
		_, err := s.db.Pool().Exec(s.ctx, "DELETE FROM "+table)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.accounts.Create(s.ctx, &models.TrackedAccount{
		ID: "acc-1", Scope: testScope, Platform: types.PlatformTikTok, Username: "creator", MaxVideos: 50,
	}))
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestAccount_NotFoundOutsideScope() {
	_, err := s.accounts.Get(s.ctx, models.Scope{OrgID: "org-2", ProjectID: "proj-1"}, "acc-1")
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
}

func (s *PostgresIntegrationSuite) TestAccount_SyncStateTransitions() {
	s.Require().NoError(s.accounts.UpdateProgress(s.ctx, testScope, "acc-1", types.SyncSyncing, models.NewSyncProgress(10, "Starting sync...")))

	retries, err := s.accounts.MarkFailed(s.ctx, testScope, "acc-1", "provider down")
	s.Require().NoError(err)
	s.Equal(1, retries)
	retries, err = s.accounts.MarkFailed(s.ctx, testScope, "acc-1", "provider down")
	s.Require().NoError(err)
	s.Equal(2, retries)

	now := time.Now().UTC().Truncate(time.Millisecond)
	s.Require().NoError(s.accounts.MarkCompleted(s.ctx, testScope, "acc-1", models.NewSyncProgress(100, "Successfully synced 3 videos"), now))

	a, err := s.accounts.Get(s.ctx, testScope, "acc-1")
	s.Require().NoError(err)
	s.Equal(types.SyncCompleted, a.SyncStatus)
	s.False(a.HasError)
	s.Nil(a.LastSyncError)
	s.Equal(0, a.SyncRetryCount)
	s.Equal(100, a.SyncProgress.Current)
	s.Require().NotNil(a.LastSyncAt)
	s.WithinDuration(now, *a.LastSyncAt, time.Millisecond)
}

func (s *PostgresIntegrationSuite) TestAccount_UpdateProfileKeepsPictureWhenEmpty() {
	profile := &models.ProfileInfo{DisplayName: "Creator", FollowerCount: 1200}
	s.Require().NoError(s.accounts.UpdateProfile(s.ctx, testScope, "acc-1", profile, "https://storage.googleapis.com/b/avatar.jpg"))
	s.Require().NoError(s.accounts.UpdateProfile(s.ctx, testScope, "acc-1", profile, ""))

	a, err := s.accounts.Get(s.ctx, testScope, "acc-1")
	s.Require().NoError(err)
	s.Equal("https://storage.googleapis.com/b/avatar.jpg", a.ProfilePicture)
	s.EqualValues(1200, a.FollowerCount)
}

func (s *PostgresIntegrationSuite) TestMembership() {
	s.Require().NoError(s.members.AddMember(s.ctx, "org-1", "user-1", "admin"))

	ok, err := s.members.IsMember(s.ctx, "org-1", "user-1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.members.IsMember(s.ctx, "org-2", "user-1")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PostgresIntegrationSuite) TestCommit_CreateThenUpdate() {
	committer := persistence.NewCommitter(s.writer, persistence.DefaultCeiling)
	upload := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	incoming := &models.VideoRecord{
		AccountID: "acc-1", VideoID: "v1", Platform: types.PlatformTikTok,
		VideoURL: "https://www.tiktok.com/@creator/video/v1", Caption: "hello",
		Thumbnail: "https://storage.googleapis.com/b/v1.jpg", UploadDate: upload,
		Metrics: models.Metrics{Views: 10, Likes: 1},
	}

	first, err := snapshot.NewManager(s.videos).Reconcile(s.ctx, testScope, incoming, types.OriginScheduler)
	s.Require().NoError(err)
	s.Equal(snapshot.OpCreate, first.Operation)

	res, err := committer.Commit(s.ctx, []*snapshot.Reconciliation{first})
	s.Require().NoError(err)
	s.Equal(3, res.WritesCommitted)

	refreshed := *incoming
	refreshed.Thumbnail = ""
	refreshed.Metrics = models.Metrics{Views: 99, Likes: 5}

	second, err := snapshot.NewManager(s.videos).Reconcile(s.ctx, testScope, &refreshed, types.OriginScheduler)
	s.Require().NoError(err)
	s.Equal(snapshot.OpUpdate, second.Operation)
	_, err = committer.Commit(s.ctx, []*snapshot.Reconciliation{second})
	s.Require().NoError(err)

	stored, err := s.videos.FindVideo(s.ctx, testScope, "acc-1", types.PlatformTikTok, "v1")
	s.Require().NoError(err)
	s.EqualValues(99, stored.Metrics.Views)
	s.Equal("https://storage.googleapis.com/b/v1.jpg", stored.Thumbnail)
	s.NotNil(stored.LastRefreshed)

	snaps, err := s.videos.ListSnapshots(s.ctx, testScope, types.PlatformTikTok, "v1", time.Time{}, 0)
	s.Require().NoError(err)
	s.Require().Len(snaps, 2)
	s.True(snaps[0].IsInitialSnapshot)
	s.Equal(types.CapturedInitialSync, snaps[0].CapturedBy)
	s.False(snaps[1].IsInitialSnapshot)
	s.Equal(types.CapturedScheduledRefresh, snaps[1].CapturedBy)

	var caption string
	s.Require().NoError(s.db.Pool().QueryRow(s.ctx,
		`SELECT caption FROM recent_activity WHERE account_id = 'acc-1' AND video_id = 'v1'`).Scan(&caption))
	s.Equal("hello", caption)
}

func (s *PostgresIntegrationSuite) TestWriteBatch_RollsBackWholeChunk() {
	good := &models.Snapshot{
		ID: "snap-1", Scope: testScope, AccountID: "acc-1", VideoID: "v1", Platform: types.PlatformTikTok,
		CapturedAt: time.Now(), IsInitialSnapshot: true, CapturedBy: types.CapturedInitialSync,
	}
	bad := &models.VideoRecord{ID: "vid-x", Scope: testScope, AccountID: "missing-account", VideoID: "x", Platform: types.PlatformTikTok}

	err := s.writer.WriteBatch(s.ctx, []persistence.Write{
		{Kind: persistence.WriteSnapshot, Snapshot: good},
		{Kind: persistence.WriteVideoCreate, Video: bad},
	})
	s.Require().Error(err)

	var n int
	s.Require().NoError(s.db.Pool().QueryRow(s.ctx, `SELECT COUNT(*) FROM video_snapshots`).Scan(&n))
	s.Zero(n)
}

func (s *PostgresIntegrationSuite) TestCommit_SameVideoTrackedByTwoAccounts() {
	s.Require().NoError(s.accounts.Create(s.ctx, &models.TrackedAccount{
		ID: "acc-2", Scope: testScope, Platform: types.PlatformTikTok, Username: "collaborator", MaxVideos: 50,
	}))
	committer := persistence.NewCommitter(s.writer, persistence.DefaultCeiling)

	var recs []*snapshot.Reconciliation
	for _, account := range []string{"acc-1", "acc-2"} {
		r, err := snapshot.NewManager(s.videos).Reconcile(s.ctx, testScope, &models.VideoRecord{
			AccountID: account, VideoID: "collab", Platform: types.PlatformTikTok,
			UploadDate: time.Now().UTC(), Metrics: models.Metrics{Views: 1},
		}, types.OriginUser)
		s.Require().NoError(err)
		s.Equal(snapshot.OpCreate, r.Operation)
		recs = append(recs, r)
	}
	_, err := committer.Commit(s.ctx, recs)
	s.Require().NoError(err)

	for _, account := range []string{"acc-1", "acc-2"} {
		stored, err := s.videos.FindVideo(s.ctx, testScope, account, types.PlatformTikTok, "collab")
		s.Require().NoError(err)
		s.Require().NotNil(stored)
		s.Equal(account, stored.AccountID)
	}
}
