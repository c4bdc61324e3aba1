package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/yourusername/gammon/pkg/peer"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c, err := Decode(New())
	is.NoErr(err)
	is.Equal(c.LogLevel, "info")
	is.Equal(c.Server.Port, 8080)
	is.Equal(c.Server.ReadTimeout, 30*time.Second)
	is.Equal(c.Server.MaxSlowWorkers, 4)
	is.Equal(c.Peer.Port, peer.DefaultPort)
	is.Equal(c.PeerAddr(), "localhost:65433")
	is.Equal(c.SelfPlay.Games, 100)
	is.Equal(c.SelfPlay.Options().X, "heuristic")
}

func TestFileAndEnvironment(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "gammon.yaml")
	is.NoErr(os.WriteFile(path, []byte(`
log_level: debug
server:
  port: 9000
  read_timeout: 5s
selfplay:
  games: 10
  o: heuristic
`), 0o644))

	t.Setenv("GAMMON_SERVER_PORT", "9100")
	t.Setenv("GAMMON_PEER_POLICY", "random")

	c, err := Load(path)
	is.NoErr(err)
	is.Equal(c.LogLevel, "debug")
	is.Equal(c.Server.Port, 9100) // environment beats the file
	is.Equal(c.Server.ReadTimeout, 5*time.Second)
	is.Equal(c.Server.Host, "localhost")
	is.Equal(c.SelfPlay.Games, 10)
	is.Equal(c.SelfPlay.O, "heuristic")
	is.Equal(c.Peer.Policy, "random")

	c.ApplyLogLevel()
	is.Equal(zerolog.GlobalLevel(), zerolog.DebugLevel)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestMissingDefaultFileIsFine(t *testing.T) {
	is := is.New(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	_, err := Load("")
	is.NoErr(err)
}

func TestMissingExplicitFile(t *testing.T) {
	is := is.New(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	is.True(err != nil)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad level", map[string]string{"GAMMON_LOG_LEVEL": "loud"}},
		{"bad port", map[string]string{"GAMMON_SERVER_PORT": "70000"}},
		{"bad peer port", map[string]string{"GAMMON_PEER_PORT": "0"}},
		{"bad policy", map[string]string{"GAMMON_SELFPLAY_X": "oracle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Decode(New())
			is.True(err != nil)
		})
	}
}
