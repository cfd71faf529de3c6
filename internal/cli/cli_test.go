package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/viva.jsonc", "--debug", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/viva.jsonc", parsed.ConfigPath)
	require.True(t, parsed.Debug)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
		wantArgs []string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantCmd: CommandVersion,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "lookup needs punch id",
			args:    []string{"lookup"},
			wantErr: "requires 1 argument",
		},
		{
			name:     "lookup with punch id",
			args:     []string{"lookup", "1042"},
			wantCmd:  CommandLookup,
			wantArgs: []string{"1042"},
		},
		{
			name:     "answer keeps every word",
			args:     []string{"--config", "/tmp/cfg", "answer", "wear", "safety", "gloves"},
			wantCmd:  CommandAnswer,
			wantPath: "/tmp/cfg",
			wantArgs: []string{"wear", "safety", "gloves"},
		},
		{
			name:    "answer needs text",
			args:    []string{"answer"},
			wantErr: "requires 1 argument",
		},
		{
			name:    "valid skip command",
			args:    []string{"skip"},
			wantCmd: CommandSkip,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantArgs, parsed.Args)
		})
	}
}

func TestParseStartOptions(t *testing.T) {
	parsed, err := Parse([]string{"start", "--punch", "1042", "--topic", "12", "--language", "English", "--questions", "5", "--no-video"})
	require.NoError(t, err)
	require.Equal(t, CommandStart, parsed.Command)
	require.Equal(t, StartOptions{
		PunchID:   "1042",
		TopicID:   12,
		Language:  "English",
		Questions: 5,
		NoVideo:   true,
	}, parsed.Start)
}

func TestParseStartRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing value", args: []string{"start", "--punch"}, wantErr: "--punch requires a value"},
		{name: "non numeric topic", args: []string{"start", "--topic", "pumps"}, wantErr: "positive number"},
		{name: "zero questions", args: []string{"start", "--questions", "0"}, wantErr: "positive number"},
		{name: "topic and machine", args: []string{"start", "--topic", "1", "--machine", "2"}, wantErr: "mutually exclusive"},
		{name: "punch and name", args: []string{"start", "--punch", "1", "--name", "Asha"}, wantErr: "mutually exclusive"},
		{name: "unknown flag", args: []string{"start", "--fast"}, wantErr: "unknown start flag"},
		{name: "positional", args: []string{"start", "now"}, wantErr: "unexpected arguments"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.args)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParsedHelpers(t *testing.T) {
	parsed := Parsed{Args: []string{"lock", "out", "first"}}
	require.Equal(t, "lock out first", parsed.Text())

	_, err := parsed.RecordID()
	require.Error(t, err)

	id, err := Parsed{Args: []string{"7"}}.RecordID()
	require.NoError(t, err)
	require.Equal(t, 7, id)

	_, err = Parsed{Args: []string{"-3"}}.RecordID()
	require.ErrorContains(t, err, "invalid record id")
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("viva")
	for _, want := range []string{"start", "record", "answer", "skip", "quit", "topics", "lookup", "records", "report", "doctor", "--config PATH"} {
		require.Contains(t, text, want)
	}
}
