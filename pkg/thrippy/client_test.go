package thrippy

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	thrippypb "github.com/tzrikka/thrippy-api/thrippy/v1"
)

type server struct {
	thrippypb.UnimplementedThrippyServiceServer
	resp *thrippypb.GetCredentialsResponse
	err  error
}

func (s *server) GetCredentials(_ context.Context, _ *thrippypb.GetCredentialsRequest) (*thrippypb.GetCredentialsResponse, error) {
	return s.resp, s.err
}

func TestLinkSecrets(t *testing.T) {
	tests := []struct {
		name    string
		resp    *thrippypb.GetCredentialsResponse
		respErr error
		want    map[string]string
		wantErr bool
	}{
		{
			name: "nil",
		},
		{
			name:    "grpc_error",
			respErr: errors.New("error"),
			wantErr: true,
		},
		{
			name: "no_secrets",
			resp: thrippypb.GetCredentialsResponse_builder{}.Build(),
		},
		{
			name:    "link_not_found",
			respErr: status.Error(codes.NotFound, "link not found"),
		},
		{
			name: "happy_path",
			resp: thrippypb.GetCredentialsResponse_builder{
				Credentials: map[string]string{"aaa": "111", "bbb": "222"},
			}.Build(),
			want: map[string]string{"aaa": "111", "bbb": "222"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lis, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatal(err)
			}
			s := grpc.NewServer()
			thrippypb.RegisterThrippyServiceServer(s, &server{resp: tt.resp, err: tt.respErr})
			go func() {
				_ = s.Serve(lis)
			}()

			got, err := LinkSecrets(t.Context(), lis.Addr().String(), insecureCreds(), "link ID")
			if (err != nil) != tt.wantErr {
				t.Errorf("LinkSecrets() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LinkSecrets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlackTokens(t *testing.T) {
	tests := []struct {
		name     string
		resp     *thrippypb.GetCredentialsResponse
		respErr  error
		wantBot  string
		wantApp  string
		wantErr  bool
		notFound bool
	}{
		{
			name:     "link_not_found",
			respErr:  status.Error(codes.NotFound, "link not found"),
			wantErr:  true,
			notFound: true,
		},
		{
			name: "missing_bot_token",
			resp: thrippypb.GetCredentialsResponse_builder{
				Credentials: map[string]string{"signing_secret": "s"},
			}.Build(),
			wantErr: true,
		},
		{
			name: "bot_token_only",
			resp: thrippypb.GetCredentialsResponse_builder{
				Credentials: map[string]string{"bot_token": "xoxb-1"},
			}.Build(),
			wantBot: "xoxb-1",
		},
		{
			name: "both_tokens",
			resp: thrippypb.GetCredentialsResponse_builder{
				Credentials: map[string]string{"bot_token": "xoxb-1", "app_token": "xapp-2"},
			}.Build(),
			wantBot: "xoxb-1",
			wantApp: "xapp-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lis, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatal(err)
			}
			s := grpc.NewServer()
			thrippypb.RegisterThrippyServiceServer(s, &server{resp: tt.resp, err: tt.respErr})
			go func() {
				_ = s.Serve(lis)
			}()
			defer s.Stop()

			bot, app, err := SlackTokens(t.Context(), lis.Addr().String(), insecureCreds(), "link ID")
			if (err != nil) != tt.wantErr {
				t.Fatalf("SlackTokens() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrLinkNotFound) != tt.notFound {
				t.Errorf("SlackTokens() error = %v, want ErrLinkNotFound = %v", err, tt.notFound)
			}
			if bot != tt.wantBot || app != tt.wantApp {
				t.Errorf("SlackTokens() = %q, %q, want %q, %q", bot, app, tt.wantBot, tt.wantApp)
			}
		})
	}
}
