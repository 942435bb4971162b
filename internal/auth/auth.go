// Package auth signs users in and registers new customers against the
// storefront backend.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/ariefcatur/go-storefront-sync/internal/session"
	"go.uber.org/zap"
)

// CustomerRoleID is the role assigned to self-registered accounts.
const CustomerRoleID = 4

var (
	ErrLogin    = errors.New("login failed")
	ErrRegister = errors.New("registration failed")
)

type Error struct {
	Op      error
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error { return []error{e.Op, e.Err} }

type Remote interface {
	Post(ctx context.Context, path string, body, out any) error
}

type Client struct {
	api         Remote
	log         *zap.Logger
	adminRoleID int
}

// New returns a client that maps adminRoleID to the courier admin role.
func New(api Remote, adminRoleID int, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{api: api, log: log, adminRoleID: adminRoleID}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Data *struct {
		ID       int    `json:"id"`
		FullName string `json:"fullName"`
		RoleID   int    `json:"roleId"`
	} `json:"data"`
}

// Login checks credentials and returns the identity to put in the session.
func (c *Client) Login(ctx context.Context, login, password string) (session.User, int, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return session.User{}, 0, &Error{Op: ErrLogin, Message: "enter login and password",
			Err: apiclient.Precondition("login and password are required")}
	}

	var resp loginResponse
	if err := c.api.Post(ctx, "/users/login", loginRequest{Login: login, Password: password}, &resp); err != nil {
		c.log.Warn("login failed", zap.String("login", login), zap.Error(err))
		msg := apiclient.Message(err, "invalid login or password")
		if apiclient.KindOf(err) == apiclient.KindTransport {
			msg = "could not connect to server"
		}
		return session.User{}, 0, &Error{Op: ErrLogin, Message: msg, Err: err}
	}
	d := resp.Data
	if d == nil || d.ID <= 0 || strings.TrimSpace(d.FullName) == "" {
		err := &apiclient.Error{Kind: apiclient.KindServer, Method: "POST", Path: "/users/login", Status: 200}
		return session.User{}, 0, &Error{Op: ErrLogin, Message: "unexpected response from server", Err: err}
	}

	role := session.RoleCustomer
	if d.RoleID == c.adminRoleID {
		role = session.RoleCourierAdmin
	}
	c.log.Info("login ok", zap.Int("user_id", d.ID), zap.String("role", string(role)))
	return session.User{FullName: d.FullName, Role: role}, d.ID, nil
}

// SignIn logs in and stores the identity. A *session.PersistenceError means
// the session is active but will not survive a restart.
func (c *Client) SignIn(ctx context.Context, store *session.Store, login, password string) (session.Session, error) {
	user, id, err := c.Login(ctx, login, password)
	if err != nil {
		return session.Session{}, err
	}
	err = store.Login(ctx, user, id)
	return session.Session{UserID: id, User: user}, err
}

type Registration struct {
	Login           string
	FirstName       string
	LastName        string
	MiddleName      string
	BirthDate       string
	Phone           string
	Email           string
	Password        string
	ConfirmPassword string
}

type registerRequest struct {
	Login        string `json:"login"`
	FullName     string `json:"fullName"`
	BirthDate    string `json:"birthDate"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	RoleID       int    `json:"roleId"`
}

// Register creates a customer account. It does not sign in.
func (c *Client) Register(ctx context.Context, r Registration) error {
	for _, v := range []string{r.Login, r.FirstName, r.LastName, r.MiddleName, r.BirthDate, r.Phone, r.Email, r.Password, r.ConfirmPassword} {
		if strings.TrimSpace(v) == "" {
			return &Error{Op: ErrRegister, Message: "all fields are required",
				Err: apiclient.Precondition("all registration fields are required")}
		}
	}
	if r.Password != r.ConfirmPassword {
		return &Error{Op: ErrRegister, Message: "passwords do not match",
			Err: apiclient.Precondition("password confirmation does not match")}
	}

	req := registerRequest{
		Login:        r.Login,
		FullName:     strings.Join(strings.Fields(r.LastName+" "+r.FirstName+" "+r.MiddleName), " "),
		BirthDate:    r.BirthDate,
		Phone:        r.Phone,
		Email:        r.Email,
		PasswordHash: r.Password,
		RoleID:       CustomerRoleID,
	}
	if err := c.api.Post(ctx, "/users", req, nil); err != nil {
		c.log.Warn("register failed", zap.String("login", r.Login), zap.Error(err))
		msg := apiclient.Message(err, "something went wrong, try again")
		if apiclient.KindOf(err) == apiclient.KindTransport {
			msg = "could not connect to server"
		}
		return &Error{Op: ErrRegister, Message: msg, Err: err}
	}
	c.log.Info("registered", zap.String("login", r.Login))
	return nil
}
