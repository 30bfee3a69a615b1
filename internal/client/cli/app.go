package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/classmint/internal/api"
	"github.com/dmitrijs2005/classmint/internal/client/config"
	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/cryptox"
	"github.com/dmitrijs2005/classmint/internal/server/auth"
)

// CallError is a failed RPC as seen by the user.
type CallError struct {
	Code    string
	Tag     string
	Message string
}

func (e *CallError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Tag, e.Message)
}

func toCallError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &CallError{Code: st.Code().String(), Tag: api.ErrorTag(err), Message: st.Message()}
}

type App struct {
	config *config.Config
	out    io.Writer
	errOut io.Writer
	conn   grpc.ClientConnInterface
	closer io.Closer
}

// NewApp returns an App writing results to out and prompts to errOut.
// The configuration is loaded when a command runs.
func NewApp(out, errOut io.Writer) *App {
	return &App{out: out, errOut: errOut}
}

func (a *App) client() (*api.Client, error) {
	if a.conn == nil {
		cc, err := grpc.NewClient(a.config.ServerEndpointAddr,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", a.config.ServerEndpointAddr, err)
		}
		a.conn, a.closer = cc, cc
	}
	return api.NewClient(a.conn), nil
}

// Close releases the connection opened by the App, if any.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.conn, a.closer = nil, nil
	return err
}

func (a *App) secret() ([]byte, error) {
	if a.config.SecretKey != "" {
		return []byte(a.config.SecretKey), nil
	}
	s, err := GetSecret(a.errOut, "Shared secret: ")
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	if len(s) == 0 {
		return nil, errors.New("secret is required for admin commands")
	}
	return s, nil
}

// adminToken mints an access token the server accepts, from the shared
// secret alone.
func (a *App) adminToken() (string, error) {
	secret, err := a.secret()
	if err != nil {
		return "", err
	}
	defer cryptox.Wipe(secret)

	key, err := cryptox.DeriveKey(secret, cryptox.InfoAdminJWT)
	if err != nil {
		return "", err
	}
	defer cryptox.Wipe(key)

	return auth.GenerateToken(a.config.IssuerID, key, a.config.AdminTokenValidityDuration)
}

func (a *App) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}

	if api.AdminMethods[method] {
		token, err := a.adminToken()
		if err != nil {
			return nil, err
		}
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	out, err := c.Call(ctx, method, fields)
	if err != nil {
		return nil, toCallError(err)
	}
	return out, nil
}
