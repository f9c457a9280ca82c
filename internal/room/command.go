package room

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Wire frames are short text messages of the form "<prefix> <argument>".
// Client-to-server commands carry playback intent; server-to-client frames
// echo the resulting status plus advisory connection events.
const (
	prefixPlay       = "pl"
	prefixPause      = "pa"
	prefixSuspend    = "sp"
	prefixUnsuspend  = "up"
	prefixChangeFile = "cf"

	prefixUserConnect    = "uc"
	prefixUserAlive      = "ua"
	prefixUserDisconnect = "ud"
)

// ErrUnknownCommand reports a frame whose prefix is not part of the protocol.
var ErrUnknownCommand = errors.New("unknown command")

// ErrBadArgument reports a frame whose argument failed to parse.
var ErrBadArgument = errors.New("bad command argument")

// CommandKind enumerates client-to-server commands.
type CommandKind int

const (
	CmdPlay CommandKind = iota
	CmdPause
	CmdSuspend
	CmdUnsuspend
	CmdChangeFile
)

// Command is a parsed client frame. VideoTime is set for the playback
// commands, FileInd for CmdChangeFile.
type Command struct {
	Kind      CommandKind
	VideoTime float64
	FileInd   int
}

// ParseCommand decodes a client frame. Frames are "<prefix> <arg>" where the
// playback prefixes take a float position in seconds and cf takes an integer
// file index.
func ParseCommand(frame string) (Command, error) {
	prefix, arg, ok := strings.Cut(frame, " ")
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrBadArgument, frame)
	}

	if prefix == prefixChangeFile {
		ind, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return Command{}, fmt.Errorf("%w: file index %q", ErrBadArgument, arg)
		}
		return Command{Kind: CmdChangeFile, FileInd: ind}, nil
	}

	var kind CommandKind
	switch prefix {
	case prefixPlay:
		kind = CmdPlay
	case prefixPause:
		kind = CmdPause
	case prefixSuspend:
		kind = CmdSuspend
	case prefixUnsuspend:
		kind = CmdUnsuspend
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, prefix)
	}

	t, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return Command{}, fmt.Errorf("%w: video time %q", ErrBadArgument, arg)
	}
	return Command{Kind: kind, VideoTime: t}, nil
}

func formatSeconds(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}

func playFrame(t float64) string    { return prefixPlay + " " + formatSeconds(t) }
func pauseFrame(t float64) string   { return prefixPause + " " + formatSeconds(t) }
func suspendFrame(t float64) string { return prefixSuspend + " " + formatSeconds(t) }

// ChangeFileFrame renders the server broadcast announcing a file switch.
func ChangeFileFrame(fileInd int) string {
	return prefixChangeFile + " " + strconv.Itoa(fileInd)
}

func userConnectFrame(connID int) string    { return prefixUserConnect + " " + strconv.Itoa(connID) }
func userAliveFrame(connID int) string      { return prefixUserAlive + " " + strconv.Itoa(connID) }
func userDisconnectFrame(connID int) string { return prefixUserDisconnect + " " + strconv.Itoa(connID) }
