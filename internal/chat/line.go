// Package chat adapts chat services into a stream of models.ChatEvent.
package chat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedLine is returned for IRC lines that cannot be parsed.
var ErrMalformedLine = errors.New("malformed irc line")

// Message is one parsed IRC line: Ping, PrivMsg or Other.
type Message interface {
	isMessage()
}

type Ping struct {
	Payload string
}

type PrivMsg struct {
	Tags    map[string]string
	Nick    string
	Channel string
	Text    string
}

// Other is any command this client does not act on.
type Other struct {
	Command string
	Params  []string
}

func (Ping) isMessage()    {}
func (PrivMsg) isMessage() {}
func (Other) isMessage()   {}

// ParseLine parses a single IRC line with optional IRCv3 tags, e.g.
// "@badges=broadcaster/1 :nick!nick@host PRIVMSG #chan :hello".
func ParseLine(line string) (Message, error) {
	rest := strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(rest) == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedLine)
	}

	var tags map[string]string
	if strings.HasPrefix(rest, "@") {
		raw, after, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil, fmt.Errorf("%w: tags without command", ErrMalformedLine)
		}
		tags = parseTags(raw)
		rest = strings.TrimLeft(after, " ")
	}

	var prefix string
	if strings.HasPrefix(rest, ":") {
		p, after, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil, fmt.Errorf("%w: prefix without command", ErrMalformedLine)
		}
		prefix = p
		rest = strings.TrimLeft(after, " ")
	}

	var trailing string
	hasTrailing := false
	if i := strings.Index(rest, " :"); i >= 0 {
		trailing = rest[i+2:]
		rest = rest[:i]
		hasTrailing = true
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no command", ErrMalformedLine)
	}
	cmd, params := strings.ToUpper(fields[0]), fields[1:]
	if hasTrailing {
		params = append(params, trailing)
	}

	switch cmd {
	case "PING":
		payload := ""
		if len(params) > 0 {
			payload = params[len(params)-1]
		}
		return Ping{Payload: payload}, nil
	case "PRIVMSG":
		if len(params) < 2 || !hasTrailing {
			return nil, fmt.Errorf("%w: PRIVMSG needs target and text", ErrMalformedLine)
		}
		nick, _, _ := strings.Cut(prefix, "!")
		if nick == "" {
			return nil, fmt.Errorf("%w: PRIVMSG without sender", ErrMalformedLine)
		}
		return PrivMsg{Tags: tags, Nick: nick, Channel: params[0], Text: params[len(params)-1]}, nil
	default:
		return Other{Command: cmd, Params: params}, nil
	}
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	for _, kv := range strings.Split(raw, ";") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		tags[k] = v
	}
	return tags
}

// isModerator reports broadcaster or moderator badges.
func (m PrivMsg) isModerator() bool {
	if m.Tags["mod"] == "1" {
		return true
	}
	return strings.Contains(m.Tags["badges"], "broadcaster/")
}
