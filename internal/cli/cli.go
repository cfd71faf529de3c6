// Package cli parses the viva command line.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandStart   Command = "start"
	CommandTopics  Command = "topics"
	CommandLookup  Command = "lookup"
	CommandRecords Command = "records"
	CommandReport  Command = "report"
	CommandStatus  Command = "status"
	CommandSkip    Command = "skip"
	CommandRecord  Command = "record"
	CommandAnswer  Command = "answer"
	CommandQuit    Command = "quit"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// arity bounds positional arguments per command; max < 0 is unbounded.
type arity struct{ min, max int }

var validCommands = map[Command]arity{
	CommandStart:   {0, 0},
	CommandTopics:  {0, 0},
	CommandLookup:  {1, 1},
	CommandRecords: {0, 0},
	CommandReport:  {1, 1},
	CommandStatus:  {0, 0},
	CommandSkip:    {0, 0},
	CommandRecord:  {0, 0},
	CommandAnswer:  {1, -1},
	CommandQuit:    {0, 0},
	CommandDevices: {0, 0},
	CommandDoctor:  {0, 0},
	CommandVersion: {0, 0},
	CommandHelp:    {0, 0},
}

// StartOptions pre-fills session setup; anything left empty is asked for
// interactively.
type StartOptions struct {
	PunchID   string
	Name      string
	TopicID   int
	MachineID int
	Language  string
	Questions int
	NoVideo   bool
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Debug      bool
	ShowHelp   bool
	Args       []string
	Start      StartOptions
}

// Text joins the positional arguments, as typed answers span several words.
func (p Parsed) Text() string {
	return strings.Join(p.Args, " ")
}

// RecordID is the numeric argument of `report`.
func (p Parsed) RecordID() (int, error) {
	if len(p.Args) != 1 {
		return 0, errors.New("record id is required")
	}
	id, err := strconv.Atoi(p.Args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", p.Args[0])
	}
	return id, nil
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			continue
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			continue
		case "--debug":
			parsed.Debug = true
			continue
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
			continue
		}

		if strings.HasPrefix(arg, "-") {
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		}

		cmd := Command(arg)
		if _, ok := validCommands[cmd]; !ok {
			return Parsed{}, fmt.Errorf("unknown command: %s", arg)
		}
		parsed.Command = cmd
		parsed.ShowHelp = cmd == CommandHelp
		break
	}
	if i >= len(args) {
		return parsed, nil
	}

	rest := args[i+1:]
	if parsed.Command == CommandStart {
		start, err := parseStart(rest)
		if err != nil {
			return Parsed{}, err
		}
		parsed.Start = start
		return parsed, nil
	}

	bounds := validCommands[parsed.Command]
	if len(rest) < bounds.min {
		return Parsed{}, fmt.Errorf("command %q requires %d argument(s)", parsed.Command, bounds.min)
	}
	if bounds.max >= 0 && len(rest) > bounds.max {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	}
	if len(rest) > 0 {
		parsed.Args = rest
	}
	return parsed, nil
}

func parseStart(args []string) (StartOptions, error) {
	var opts StartOptions

	value := func(i int, flag string) (string, error) {
		if i >= len(args) || strings.TrimSpace(args[i]) == "" {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}
	number := func(i int, flag string) (int, error) {
		raw, err := value(i, flag)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s must be a positive number, got %q", flag, raw)
		}
		return n, nil
	}

	for i := 0; i < len(args); i++ {
		var err error
		switch flag := args[i]; flag {
		case "--punch":
			i++
			opts.PunchID, err = value(i, flag)
		case "--name":
			i++
			opts.Name, err = value(i, flag)
		case "--topic":
			i++
			opts.TopicID, err = number(i, flag)
		case "--machine":
			i++
			opts.MachineID, err = number(i, flag)
		case "--language":
			i++
			opts.Language, err = value(i, flag)
		case "--questions":
			i++
			opts.Questions, err = number(i, flag)
		case "--no-video":
			opts.NoVideo = true
		default:
			if strings.HasPrefix(flag, "-") {
				return StartOptions{}, fmt.Errorf("unknown start flag: %s", flag)
			}
			return StartOptions{}, fmt.Errorf("unexpected arguments after command %q", CommandStart)
		}
		if err != nil {
			return StartOptions{}, err
		}
	}

	if opts.TopicID > 0 && opts.MachineID > 0 {
		return StartOptions{}, errors.New("--topic and --machine are mutually exclusive")
	}
	if opts.PunchID != "" && opts.Name != "" {
		return StartOptions{}, errors.New("--punch and --name are mutually exclusive")
	}
	return opts, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--debug] <command> [args]

Session:
  start     Run an interactive viva session in this terminal
              --punch ID | --name NAME    candidate identity
              --topic ID | --machine ID   question source
              --language Hindi|English    host and transcription language
              --questions N               questions to generate
              --no-video                  do not record the camera
  status    Print the running session state
  record    Start or stop recording the spoken answer
  answer    Submit a typed answer: answer <text>
  skip      Move to the next question
  quit      Abandon the running session

Backend:
  topics    List topics with enough questions
  lookup    Look up an employee: lookup <punch-id>
  records   List saved viva records
  report    Compile and open a report: report <record-id>

Environment:
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/viva/config.jsonc)
  --debug         Keep debug records in the log
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
