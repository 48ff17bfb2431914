package engine

import (
	"strings"
)

// URL is a travel target: a map followed by ?-separated options, e.g. /Game/Maps/Arena?GAME=/Script/X.Mode?listen.
type URL struct {
	Map     string
	Options []string
}

func ParseURL(s string) URL {
	parts := strings.Split(s, "?")
	u := URL{Map: parts[0]}
	for _, opt := range parts[1:] {
		if opt != "" {
			u.Options = append(u.Options, opt)
		}
	}
	return u
}

// Option returns the value of key=value, or "" for a bare key.
func (u URL) Option(key string) (string, bool) {
	for _, opt := range u.Options {
		k, v, _ := strings.Cut(opt, "=")
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func (u URL) HasOption(key string) bool {
	_, ok := u.Option(key)
	return ok
}

func (u URL) String() string {
	if len(u.Options) == 0 {
		return u.Map
	}
	return u.Map + "?" + strings.Join(u.Options, "?")
}
