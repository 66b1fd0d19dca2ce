package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dom/vidshare-backend/internal/mail"
	"github.com/dom/vidshare-backend/internal/repository"
	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resetLinkPattern = regexp.MustCompile(`href="([^"]+)"`)

// lastResetToken pulls the plain token out of the newest reset email.
func lastResetToken(t *testing.T, mailer *testutil.RecordingMailer) string {
	t.Helper()

	msgs := mailer.Messages()
	require.NotEmpty(t, msgs)
	m := resetLinkPattern.FindStringSubmatch(msgs[len(msgs)-1].HTML)
	require.Len(t, m, 2)

	u, err := url.Parse(strings.ReplaceAll(m[1], "&amp;", "&"))
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestPasswordResetService_ForgotPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	registerAda(t, env)

	require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, " ADA@x.com"))

	msgs := env.Mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ada@x.com", msgs[0].To)
	assert.Contains(t, msgs[0].HTML, "http://localhost:3000/reset-password?email=ada%40x.com&amp;token=")

	plain := lastResetToken(t, env.Mailer)
	assert.Len(t, plain, 64)

	stored, err := env.Repos.ResetPassword.GetLatestByEmail(ctx, "ada@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, plain, stored.Token)
	assert.Equal(t, env.Clock.Now(), stored.CreatedAt)
}

func TestPasswordResetService_Cooldown(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com"))

	env.Clock.Advance(30 * time.Second)
	err := env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com")
	assert.ErrorIs(t, err, service.ErrResetCooldown)
	assert.Len(t, env.Mailer.Messages(), 1)

	// The cooldown still holds at exactly one minute.
	env.Clock.Advance(30 * time.Second)
	err = env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com")
	assert.ErrorIs(t, err, service.ErrResetCooldown)

	env.Clock.Advance(time.Second)
	require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com"))
	assert.Len(t, env.Mailer.Messages(), 2)
}

func TestPasswordResetService_UnknownEmailStillSends(t *testing.T) {
	env := testutil.NewEnv(t)

	require.NoError(t, env.Services.PasswordReset.ForgotPassword(context.Background(), "ghost@x.com"))
	assert.Len(t, env.Mailer.Messages(), 1)
}

func TestPasswordResetService_MailErrors(t *testing.T) {
	tests := []struct {
		name    string
		mailErr error
		wantIs  error
	}{
		{
			name:    "recipient rejected",
			mailErr: fmt.Errorf("%w: 550 no such user", mail.ErrRecipientRejected),
			wantIs:  service.ErrMailRejected,
		},
		{
			name:    "transport failure",
			mailErr: errors.New("dial tcp: connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			env.Mailer.SetErr(tt.mailErr)

			err := env.Services.PasswordReset.ForgotPassword(context.Background(), "ada@x.com")
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				assert.NotErrorIs(t, err, service.ErrMailRejected)
			}
		})
	}
}

func TestPasswordResetService_ResetPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	registerAda(t, env)

	require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com"))
	plain := lastResetToken(t, env.Mailer)

	err := env.Services.PasswordReset.ResetPassword(ctx, service.ResetInput{
		Email: "ada@x.com", Token: "0000", Password: "brandnewpass",
	})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)

	err = env.Services.PasswordReset.ResetPassword(ctx, service.ResetInput{
		Email: "ada@x.com", Token: plain, Password: "brandnewpass",
	})
	require.NoError(t, err)

	_, err = env.Services.Auth.Login(ctx, service.LoginInput{Username: "ada", Password: "brandnewpass"})
	assert.NoError(t, err)

	// Single use.
	err = env.Services.PasswordReset.ResetPassword(ctx, service.ResetInput{
		Email: "ada@x.com", Token: plain, Password: "anotherpass1",
	})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)
}

func TestPasswordResetService_ResetPassword_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		advance time.Duration
		prepare func(t *testing.T, env *testutil.Env)
	}{
		{
			name:    "expired",
			email:   "ada@x.com",
			advance: time.Hour,
			prepare: func(t *testing.T, env *testutil.Env) { registerAda(t, env) },
		},
		{
			name:    "no request for email",
			email:   "other@x.com",
			prepare: func(t *testing.T, env *testutil.Env) { registerAda(t, env) },
		},
		{
			name:    "no user for email",
			email:   "ada@x.com",
			prepare: func(t *testing.T, env *testutil.Env) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			ctx := context.Background()
			tt.prepare(t, env)

			require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com"))
			plain := lastResetToken(t, env.Mailer)
			env.Clock.Advance(tt.advance)

			err := env.Services.PasswordReset.ResetPassword(ctx, service.ResetInput{
				Email: tt.email, Token: plain, Password: "brandnewpass",
			})
			assert.ErrorIs(t, err, service.ErrInvalidResetToken)
		})
	}
}

func TestPasswordResetService_NewRequestSupersedesOld(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	registerAda(t, env)

	require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com"))
	first := lastResetToken(t, env.Mailer)
	env.Clock.Advance(2 * time.Minute)
	require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com"))
	second := lastResetToken(t, env.Mailer)

	err := env.Services.PasswordReset.ResetPassword(ctx, service.ResetInput{Email: "ada@x.com", Token: first, Password: "brandnewpass"})
	assert.ErrorIs(t, err, service.ErrInvalidResetToken)

	err = env.Services.PasswordReset.ResetPassword(ctx, service.ResetInput{Email: "ada@x.com", Token: second, Password: "brandnewpass"})
	assert.NoError(t, err)
}

func TestPasswordResetService_ConcurrentResetsConsumeOnce(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	registerAda(t, env)

	require.NoError(t, env.Services.PasswordReset.ForgotPassword(ctx, "ada@x.com"))
	plain := lastResetToken(t, env.Mailer)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		start     = make(chan struct{})
		errs      = make(chan error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := env.Services.PasswordReset.ResetPassword(ctx, service.ResetInput{
				Email: "ada@x.com", Token: plain, Password: fmt.Sprintf("brandnewpass%d", i),
			})
			if err == nil {
				succeeded.Add(1)
				return
			}
			errs <- err
		}(i)
	}
	close(start)
	wg.Wait()
	close(errs)

	assert.EqualValues(t, 1, succeeded.Load())
	for err := range errs {
		assert.ErrorIs(t, err, service.ErrInvalidResetToken)
	}

	_, err := env.Repos.ResetPassword.GetLatestByEmail(ctx, "ada@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
