package account

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDirectory(t *testing.T) *GormDirectory {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormDirectory(conn)
}

func createPrincipal(t *testing.T, dir *GormDirectory, kind Kind, email string) *Principal {
	t.Helper()
	p := &Principal{Kind: kind, Email: email, Name: "Test", PasswordHash: "digest", Active: true}
	require.NoError(t, dir.Create(context.Background(), p))
	return p
}

func TestFindByEmailCIFallsBackToCaseInsensitive(t *testing.T) {
	dir := newTestDirectory(t)
	created := createPrincipal(t, dir, KindUser, "Mixed.Case@Example.com")

	found, err := dir.FindByEmailCI(context.Background(), "  mixed.case@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, KindUser, found.Kind)
	assert.Equal(t, "Mixed.Case@Example.com", found.Email)
	assert.True(t, found.Active)
}

func TestFindByEmailCINotFound(t *testing.T) {
	dir := newTestDirectory(t)
	_, err := dir.FindByEmailCI(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = dir.FindByEmailCI(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByEmailCIHonoursStoreOrder(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	// Bypass the claim table to simulate legacy duplicates.
	require.NoError(t, dir.db.Table("users").Create(&Credentials{ID: "u1", Email: "dup@x.com", PasswordHash: "d"}).Error)
	require.NoError(t, dir.db.Table("creators").Create(&Credentials{ID: "c1", Email: "DUP@x.com", PasswordHash: "d"}).Error)

	found, err := dir.FindByEmailCI(ctx, "dup@x.com")
	require.NoError(t, err)
	assert.Equal(t, KindCreator, found.Kind)
	assert.Equal(t, "c1", found.ID)
}

func TestCreateEnforcesEmailUniquenessAcrossStores(t *testing.T) {
	dir := newTestDirectory(t)
	createPrincipal(t, dir, KindAdmin, "boss@example.com")

	for _, kind := range LookupOrder {
		err := dir.Create(context.Background(), &Principal{Kind: kind, Email: "BOSS@example.com", PasswordHash: "d"})
		assert.ErrorIs(t, err, ErrEmailTaken, "kind %s", kind)
	}
}

func TestCreateRejectsLegacyDuplicateWithoutClaim(t *testing.T) {
	dir := newTestDirectory(t)
	require.NoError(t, dir.db.Table("creators").Create(&Credentials{ID: "c1", Email: "old@x.com", PasswordHash: "d"}).Error)

	err := dir.Create(context.Background(), &Principal{Kind: KindUser, Email: "Old@X.com", PasswordHash: "d"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateRejectsInvalidKind(t *testing.T) {
	dir := newTestDirectory(t)
	err := dir.Create(context.Background(), &Principal{Kind: "root", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestInactivePrincipalRoundTrips(t *testing.T) {
	dir := newTestDirectory(t)
	p := &Principal{Kind: KindAdmin, Email: "off@x.com", PasswordHash: "d", Active: false}
	require.NoError(t, dir.Create(context.Background(), p))

	found, err := dir.FindByID(context.Background(), KindAdmin, p.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)
}

func TestResetTokenLifecycle(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()
	p := createPrincipal(t, dir, KindCreator, "maker@x.com")

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, dir.SetResetToken(ctx, KindCreator, p.ID, "abc123", expires))

	found, err := dir.FindByResetTokenHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	require.NotNil(t, found.ResetExpiresAt)
	assert.True(t, found.ResetExpiresAt.Equal(expires))

	require.NoError(t, dir.UpdatePassword(ctx, KindCreator, p.ID, "new-digest"))

	_, err = dir.FindByResetTokenHash(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err = dir.FindByID(ctx, KindCreator, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-digest", found.PasswordHash)
	assert.Empty(t, found.ResetTokenHash)
	assert.Nil(t, found.ResetExpiresAt)
}

func TestSettersUpdateFlags(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()
	p := createPrincipal(t, dir, KindUser, "flags@x.com")

	require.NoError(t, dir.SetTOTPSecret(ctx, KindUser, p.ID, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, dir.SetThirdFactor(ctx, KindUser, p.ID, true))
	require.NoError(t, dir.SetActive(ctx, KindUser, p.ID, false))

	found, err := dir.FindByID(ctx, KindUser, p.ID)
	require.NoError(t, err)
	assert.True(t, found.HasTOTP())
	assert.True(t, found.ThirdFactorEnabled)
	assert.False(t, found.Active)

	assert.ErrorIs(t, dir.SetActive(ctx, KindUser, "missing", true), ErrNotFound)
	_, err = dir.FindByID(ctx, KindAdmin, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Creator ")
	require.NoError(t, err)
	assert.Equal(t, KindCreator, k)

	_, err = ParseKind("owner")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestMigratedTablesCarryCredentialColumns(t *testing.T) {
	dir := newTestDirectory(t)
	m := dir.db.Migrator()

	for _, model := range []any{&Admin{}, &Creator{}, &User{}} {
		for _, column := range []string{"email", "password_hash", "reset_token_hash", "reset_expires_at", "third_factor_enabled"} {
			assert.True(t, m.HasColumn(model, column), "%T.%s", model, column)
		}
	}
	assert.True(t, m.HasTable(&EmailClaim{}))
}
