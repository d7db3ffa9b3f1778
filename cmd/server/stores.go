package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-entitlement-auth/authcode"
	fakecoderepo "github.com/jrsteele09/go-entitlement-auth/authcode/fakerepo"
	"github.com/jrsteele09/go-entitlement-auth/clients"
	fakeclientrepo "github.com/jrsteele09/go-entitlement-auth/clients/fakerepo"
	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	fakeentitlementrepo "github.com/jrsteele09/go-entitlement-auth/entitlements/fakerepo"
	"github.com/jrsteele09/go-entitlement-auth/internal/config"
	"github.com/jrsteele09/go-entitlement-auth/storage/postgres"
	"github.com/jrsteele09/go-entitlement-auth/storage/redisstore"
	"github.com/jrsteele09/go-entitlement-auth/token"
	"github.com/jrsteele09/go-entitlement-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-entitlement-auth/users/fakerepo"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// defaultCourseID seeds the in-memory catalogue so SSO logins get a baseline enrollment
const defaultCourseID = "course-1"

// stores holds one implementation of every repository. Postgres backs the
// durable tables when DATABASE_URL is set; Redis takes over the code table
// and deny-list when REDIS_URL is set. Anything unset falls back to memory.
type stores struct {
	users        users.Repo
	clients      clients.Repo
	codes        authcode.Repo
	enrollments  entitlements.EnrollmentRepo
	courses      entitlements.CourseRepo
	integrations entitlements.IntegrationRepo
	revoked      token.RevokedTokenCache

	pool  *pgxpool.Pool
	redis *redis.Client
}

func openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*stores, error) {
	st := &stores{}

	if databaseURL := cfg.GetDatabaseURL(); databaseURL != "" {
		pool, err := postgres.Connect(ctx, databaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "[openStores] postgres")
		}
		st.pool = pool
		st.users = postgres.NewUserRepo(pool)
		st.clients = postgres.NewClientRepo(pool)
		st.codes = postgres.NewCodeRepo(pool)
		st.enrollments = postgres.NewEnrollmentRepo(pool)
		st.courses = postgres.NewCourseRepo(pool)
		st.integrations = postgres.NewIntegrationRepo(pool)
		logger.Info().Msg("using postgres storage")
	} else {
		st.users = fakeuserrepo.NewFakeUserRepo()
		st.clients = fakeclientrepo.NewFakeClientRepo()
		st.codes = fakecoderepo.NewFakeCodeRepo()
		st.enrollments = fakeentitlementrepo.NewFakeEnrollmentRepo()
		st.courses = fakeentitlementrepo.NewFakeCourseRepo(defaultCourseID)
		st.integrations = fakeentitlementrepo.NewFakeIntegrationRepo()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory storage; data is lost on restart")
	}

	st.revoked = token.NewInMemoryRevokedTokenCache()
	if redisURL := cfg.GetRedisURL(); redisURL != "" {
		client, err := redisstore.Connect(ctx, redisURL)
		if err != nil {
			st.Close()
			return nil, errors.Wrap(err, "[openStores] redis")
		}
		st.redis = client
		st.codes = redisstore.NewCodeRepo(client)
		st.revoked = redisstore.NewRevokedTokenCache(client)
		logger.Info().Msg("using redis for authorization codes and revoked tokens")
	}

	return st, nil
}

func (st *stores) Close() {
	if st.redis != nil {
		_ = st.redis.Close()
	}
	if st.pool != nil {
		st.pool.Close()
	}
}
