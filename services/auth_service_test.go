package services

import (
	"errors"
	"testing"
	"time"

	"github.com/royamoon/FoodLens/config"
	"github.com/royamoon/FoodLens/utils"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupAuthDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	db, mock := setupMockDB(t)
	config.DB = db
	t.Cleanup(func() { config.DB = nil })
	return mock
}

func userRows(passwordHash string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "email", "password", "full_name", "provider", "disabled",
	}).AddRow(1, "user-1", "user@test.com", passwordHash, "Test User", "email", false)
}

func profileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "email"}).
		AddRow(1, "user-1", "user@test.com")
}

func sessionRows(jti string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "refresh_token_id", "revoked", "expires_at",
	}).AddRow(7, "user-1", jti, false, expiresAt)
}

func insertedID(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

func TestAuthenticateUserThenVerify(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	mock := setupAuthDB(t)

	hash, err := utils.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE \(email = \$1 AND disabled = \$2\)`).
		WillReturnRows(userRows(hash))
	mock.ExpectQuery(`SELECT (.+) FROM "user_profiles" WHERE user_id = \$1`).
		WillReturnRows(profileRows())
	mock.ExpectQuery(`INSERT INTO "sessions"`).
		WillReturnRows(insertedID(1))

	user, tokens, err := AuthenticateUser("user@test.com", "hunter2")
	if err != nil {
		t.Fatalf("AuthenticateUser failed: %v", err)
	}
	if user.UserID != "user-1" {
		t.Errorf("UserID = %q", user.UserID)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	// The issued bearer token must pass verification.
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE \(user_id = \$1 AND disabled = \$2\)`).
		WillReturnRows(userRows(hash))

	identity, err := VerifyAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if identity.ID != "user-1" || identity.Email != "user@test.com" {
		t.Errorf("unexpected identity: %+v", identity)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAuthenticateUserWrongPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	mock := setupAuthDB(t)

	hash, err := utils.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE \(email = \$1 AND disabled = \$2\)`).
		WillReturnRows(userRows(hash))

	_, _, err = AuthenticateUser("user@test.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateUserUnknownEmail(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	mock := setupAuthDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE \(email = \$1 AND disabled = \$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := AuthenticateUser("nobody@test.com", "hunter2")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	mock := setupAuthDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(insertedID(1))
	mock.ExpectQuery(`SELECT (.+) FROM "user_profiles" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "user_profiles"`).
		WillReturnRows(insertedID(1))
	mock.ExpectQuery(`INSERT INTO "sessions"`).
		WillReturnRows(insertedID(1))

	user, tokens, err := RegisterUser("new@test.com", "secret123", "New User")
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if user.UserID == "" {
		t.Error("expected a generated user id")
	}
	if user.Provider != "email" {
		t.Errorf("Provider = %q, want email", user.Provider)
	}
	if user.Password == "secret123" {
		t.Error("password must be stored hashed")
	}
	if !utils.CheckPasswordHash("secret123", user.Password) {
		t.Error("stored hash should verify the original password")
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Error("expected a full token pair")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegisterUserEmailTaken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	mock := setupAuthDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email = \$1`).
		WillReturnRows(userRows("some-hash"))

	_, _, err := RegisterUser("user@test.com", "secret123", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRefreshSessionRotates(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	mock := setupAuthDB(t)

	refresh, jti, err := utils.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	mock.ExpectQuery(`SELECT (.+) FROM "sessions" WHERE \(refresh_token_id = \$1 AND revoked = \$2\)`).
		WillReturnRows(sessionRows(jti, time.Now().Add(time.Hour)))
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE \(user_id = \$1 AND disabled = \$2\)`).
		WillReturnRows(userRows(""))
	mock.ExpectExec(`UPDATE "sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "sessions"`).
		WillReturnRows(insertedID(8))

	user, tokens, err := RefreshSession(refresh)
	if err != nil {
		t.Fatalf("RefreshSession failed: %v", err)
	}
	if user.UserID != "user-1" {
		t.Errorf("UserID = %q", user.UserID)
	}
	if tokens.RefreshToken == refresh {
		t.Error("rotation must issue a new refresh token")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRefreshSessionRevokedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	mock := setupAuthDB(t)

	refresh, _, err := utils.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	// The session row was revoked (logout or earlier rotation): the scoped
	// query comes back empty.
	mock.ExpectQuery(`SELECT (.+) FROM "sessions" WHERE \(refresh_token_id = \$1 AND revoked = \$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err = RefreshSession(refresh)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshSessionRejectsAccessToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	setupAuthDB(t)

	access, err := utils.GenerateAccessToken("user-1", "user@test.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	_, _, err = RefreshSession(access)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRevokeUserSessions(t *testing.T) {
	mock := setupAuthDB(t)

	mock.ExpectExec(`UPDATE "sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := RevokeUserSessions("user-1"); err != nil {
		t.Errorf("RevokeUserSessions failed: %v", err)
	}
}
