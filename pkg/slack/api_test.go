package slack

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	goslack "github.com/slack-go/slack"
)

func mockSlackServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for path, body := range responses {
		mux.HandleFunc("/"+path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}

	s := httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func testClient(s *httptest.Server) *Client {
	return NewClient("xoxb-test", goslack.OptionAPIURL(s.URL+"/"))
}

func TestClientLookupUser(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    *User
		wantErr bool
	}{
		{
			name: "happy_path",
			resp: `{"ok": true, "user": {"id": "U123", "real_name": "Real Name",
				"profile": {"email": "user@example.com", "display_name": "disp"}}}`,
			want: &User{ID: "U123", Email: "user@example.com", DisplayName: "disp", RealName: "Real Name"},
		},
		{
			name:    "not_ok",
			resp:    `{"ok": false, "error": "user_not_found"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mockSlackServer(t, map[string]string{"users.info": tt.resp})

			got, err := testClient(s).LookupUser(t.Context(), "U123")
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupUser() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LookupUser() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClientLookupTeam(t *testing.T) {
	s := mockSlackServer(t, map[string]string{
		"team.info": `{"ok": true, "team": {"id": "T1", "name": "Team", "domain": "myteam"}}`,
	})

	got, err := testClient(s).LookupTeam(t.Context(), "T1")
	if err != nil {
		t.Fatalf("LookupTeam() error = %v", err)
	}
	want := &Team{ID: "T1", Name: "Team", Domain: "myteam"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LookupTeam() = %+v, want %+v", got, want)
	}
}

func TestClientLookupFile(t *testing.T) {
	s := mockSlackServer(t, map[string]string{
		"files.info": `{"ok": true, "file": {"id": "F1", "permalink": "https://x/files/F1",
			"url_private": "https://files.slack.com/F1"}}`,
	})

	got, err := testClient(s).LookupFile(t.Context(), "F1")
	if err != nil {
		t.Fatalf("LookupFile() error = %v", err)
	}
	want := &File{ID: "F1", Permalink: "https://x/files/F1", URLPrivate: "https://files.slack.com/F1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LookupFile() = %+v, want %+v", got, want)
	}
}

func TestClientPermalink(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    string
		wantErr bool
	}{
		{
			name: "happy_path",
			resp: `{"ok": true, "channel": "C1", "permalink": "https://team.slack.com/archives/C1/p1600000000000100"}`,
			want: "https://team.slack.com/archives/C1/p1600000000000100",
		},
		{
			name:    "channel_not_found",
			resp:    `{"ok": false, "error": "channel_not_found"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mockSlackServer(t, map[string]string{"chat.getPermalink": tt.resp})

			got, err := testClient(s).Permalink(t.Context(), "C1", "1600000000.000100")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Permalink() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Permalink() = %q, want %q", got, tt.want)
			}
		})
	}
}
