package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eshop-api/internal/auth"
	"eshop-api/internal/domain"
	"eshop-api/internal/store"
)

func TestRegisterUserHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		created := &domain.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com", PasswordHash: "stored-hash"}
		mockUsers.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(nil, store.ErrUserNotFound).Once()
		mockUsers.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			// The plaintext password never reaches the store.
			return u.Email == "alice@example.com" && u.PasswordHash != "" && u.PasswordHash != "s3cret"
		})).Return(created, nil).Once()

		res := env.do(t, http.MethodPost, "/api/v1/users", "", UserRegisterInput{
			Name:     "Alice",
			Email:    "alice@example.com",
			Password: "s3cret",
		})

		assert.Equal(t, http.StatusCreated, res.StatusCode)
		body := decodeBody[map[string]interface{}](t, res)
		assert.Equal(t, "Alice", body["name"])
		_, leaked := body["passwordHash"]
		assert.False(t, leaked, "password hash must not appear in responses")
		mockUsers.AssertExpectations(t)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		existing := &domain.User{ID: primitive.NewObjectID(), Email: "alice@example.com"}
		mockUsers.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(existing, nil).Once()

		res := env.do(t, http.MethodPost, "/api/v1/users", "", UserRegisterInput{
			Name:     "Alice",
			Email:    "alice@example.com",
			Password: "s3cret",
		})

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		body := decodeBody[MessageResponse](t, res)
		assert.Equal(t, "Email is already registered", body.Message)
		mockUsers.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("DuplicateEmailRace", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		mockUsers.On("GetUserByEmail", mock.Anything, "alice@example.com").
			Return(nil, store.ErrUserNotFound).Once()
		mockUsers.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, store.ErrEmailExists).Once()

		res := env.do(t, http.MethodPost, "/api/v1/users", "", UserRegisterInput{
			Name:     "Alice",
			Email:    "alice@example.com",
			Password: "s3cret",
		})

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		body := decodeBody[MessageResponse](t, res)
		assert.Equal(t, "Email is already registered", body.Message)
		mockUsers.AssertExpectations(t)
	})

	t.Run("MissingPassword", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		res := env.do(t, http.MethodPost, "/api/v1/users", "", UserRegisterInput{
			Name:  "Alice",
			Email: "alice@example.com",
		})

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		body := decodeBody[MessageResponse](t, res)
		assert.Equal(t, "Name, email, and password are required", body.Message)
		mockUsers.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		hash, err := auth.HashPassword("s3cret")
		require.NoError(t, err)
		user := &domain.User{ID: primitive.NewObjectID(), Email: "alice@example.com", PasswordHash: hash, IsAdmin: true}
		mockUsers.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(user, nil).Once()

		res := env.do(t, http.MethodPost, "/api/v1/users/login", "",
			LoginInput{Email: "alice@example.com", Password: "s3cret"})

		assert.Equal(t, http.StatusOK, res.StatusCode)
		body := decodeBody[map[string]string](t, res)
		require.NotEmpty(t, body["token"])

		claims, err := env.tokens.Parse(body["token"])
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.UserID)
		assert.True(t, claims.IsAdmin)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		hash, err := auth.HashPassword("s3cret")
		require.NoError(t, err)
		user := &domain.User{ID: primitive.NewObjectID(), Email: "alice@example.com", PasswordHash: hash}
		mockUsers.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(user, nil).Once()

		res := env.do(t, http.MethodPost, "/api/v1/users/login", "",
			LoginInput{Email: "alice@example.com", Password: "wrong"})

		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		body := decodeBody[MessageResponse](t, res)
		assert.Equal(t, "Invalid email or password", body.Message)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		mockUsers.On("GetUserByEmail", mock.Anything, "ghost@example.com").
			Return(nil, store.ErrUserNotFound).Once()

		res := env.do(t, http.MethodPost, "/api/v1/users/login", "",
			LoginInput{Email: "ghost@example.com", Password: "whatever"})

		// Indistinguishable from the wrong-password case.
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		body := decodeBody[MessageResponse](t, res)
		assert.Equal(t, "Invalid email or password", body.Message)
	})
}

func TestGetUserByIDHandler(t *testing.T) {
	t.Run("Self", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		user := &domain.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com"}
		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()

		res := env.do(t, http.MethodGet, "/api/v1/users/"+user.ID.Hex(), env.tokenFor(t, user), nil)

		assert.Equal(t, http.StatusOK, res.StatusCode)
		body := decodeBody[domain.User](t, res)
		assert.Equal(t, "Alice", body.Name)
	})

	t.Run("OtherUserDenied", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		caller := &domain.User{ID: primitive.NewObjectID(), Email: "bob@example.com"}
		res := env.do(t, http.MethodGet, "/api/v1/users/"+primitive.NewObjectID().Hex(),
			env.tokenFor(t, caller), nil)

		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		body := decodeBody[MessageResponse](t, res)
		assert.Equal(t, "Access denied", body.Message)
		mockUsers.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("AdminReadsAny", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		user := &domain.User{ID: primitive.NewObjectID(), Name: "Alice"}
		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()

		res := env.do(t, http.MethodGet, "/api/v1/users/"+user.ID.Hex(), env.adminToken(t), nil)

		assert.Equal(t, http.StatusOK, res.StatusCode)
	})
}

func TestUpdateUserHandler(t *testing.T) {
	t.Run("MergesFields", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		user := &domain.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com", City: "Astana"}
		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		mockUsers.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			// Absent fields keep their previous values.
			return u.Name == "Alicia" && u.Email == "alice@example.com" && u.City == "Astana"
		})).Return(user, nil).Once()

		res := env.do(t, http.MethodPut, "/api/v1/users/"+user.ID.Hex(), env.tokenFor(t, user),
			UserUpdateInput{Name: PtrTo("Alicia")})

		assert.Equal(t, http.StatusOK, res.StatusCode)
		mockUsers.AssertExpectations(t)
	})

	t.Run("NonAdminCannotGrantAdmin", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		user := &domain.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com"}
		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		mockUsers.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return !u.IsAdmin
		})).Return(user, nil).Once()

		res := env.do(t, http.MethodPut, "/api/v1/users/"+user.ID.Hex(), env.tokenFor(t, user),
			UserUpdateInput{IsAdmin: PtrTo(true)})

		assert.Equal(t, http.StatusOK, res.StatusCode)
		mockUsers.AssertExpectations(t)
	})

	t.Run("AdminGrantsAdmin", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		user := &domain.User{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com"}
		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		mockUsers.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.IsAdmin
		})).Return(user, nil).Once()

		res := env.do(t, http.MethodPut, "/api/v1/users/"+user.ID.Hex(), env.adminToken(t),
			UserUpdateInput{IsAdmin: PtrTo(true)})

		assert.Equal(t, http.StatusOK, res.StatusCode)
		mockUsers.AssertExpectations(t)
	})
}

func TestDeleteUserHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		id := primitive.NewObjectID()
		mockUsers.On("DeleteUser", mock.Anything, id).Return(nil).Once()

		res := env.do(t, http.MethodDelete, "/api/v1/users/"+id.Hex(), env.adminToken(t), nil)

		assert.Equal(t, http.StatusOK, res.StatusCode)
		body := decodeBody[MessageResponse](t, res)
		assert.Equal(t, "User deleted successfully", body.Message)
		mockUsers.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		id := primitive.NewObjectID()
		mockUsers.On("DeleteUser", mock.Anything, id).Return(store.ErrUserNotFound).Once()

		res := env.do(t, http.MethodDelete, "/api/v1/users/"+id.Hex(), env.adminToken(t), nil)

		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		caller := &domain.User{ID: primitive.NewObjectID(), Email: "bob@example.com"}
		res := env.do(t, http.MethodDelete, "/api/v1/users/"+caller.ID.Hex(), env.tokenFor(t, caller), nil)

		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		mockUsers.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})
}

func TestListUsersHandler(t *testing.T) {
	t.Run("AdminOnly", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		res := env.do(t, http.MethodGet, "/api/v1/users",
			env.tokenFor(t, &domain.User{ID: primitive.NewObjectID()}), nil)

		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		mockUsers.AssertNotCalled(t, "ListUsers", mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		mockUsers := new(MockUserStorer)
		env := setupTestServer(t, nil, nil, mockUsers, nil)

		users := []domain.UserListEntry{{ID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com"}}
		mockUsers.On("ListUsers", mock.Anything).Return(users, nil).Once()

		res := env.do(t, http.MethodGet, "/api/v1/users", env.adminToken(t), nil)

		assert.Equal(t, http.StatusOK, res.StatusCode)
		body := decodeBody[[]map[string]interface{}](t, res)
		require.Len(t, body, 1)
		assert.Equal(t, "Alice", body[0]["name"])
		assert.Equal(t, "alice@example.com", body[0]["email"])
		// The listing carries no account state, in particular no admin flag.
		_, present := body[0]["isAdmin"]
		assert.False(t, present)
	})
}

func TestGetUserCountHandler(t *testing.T) {
	mockUsers := new(MockUserStorer)
	env := setupTestServer(t, nil, nil, mockUsers, nil)

	mockUsers.On("CountUsers", mock.Anything).Return(int64(5), nil).Once()

	// Count is public.
	res := env.do(t, http.MethodGet, "/api/v1/users/get/count", "", nil)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[map[string]int64](t, res)
	assert.Equal(t, int64(5), body["count"])
}
