package model

import (
	"fmt"
	"time"
)

// Credentials are the four OAuth1 strings needed to sign requests.
type Credentials struct {
	ConsumerKey       string `koanf:"consumer_key"`
	ConsumerSecret    string `koanf:"consumer_secret"`
	AccessToken       string `koanf:"access_token"`
	AccessTokenSecret string `koanf:"access_token_secret"`
}

// Complete reports whether all four credentials are set.
func (c Credentials) Complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

type Author struct {
	Handle   string
	Location string // self-declared, may be empty
}

// Status is one post as handed back by a source, before it is cut down
// to a record.
type Status struct {
	ID        string
	Text      string
	CreatedAt time.Time // zero when the source doesn't say
	Author    Author
}

// Query is a keyword/hashtag search. Since is an inclusive calendar date.
type Query struct {
	Terms string
	Lang  string
	Since time.Time
}

// SinceDate renders Since the way the search endpoints want it, or "" if unset.
func (q Query) SinceDate() string {
	if q.Since.IsZero() {
		return ""
	}
	return q.Since.Format(time.DateOnly)
}

// Limit bounds how many items a retrieval drains. Unbounded drains
// everything the platform is willing to page out.
type Limit int

const Unbounded Limit = 0

func (l Limit) Bounded() bool { return l > 0 }

func (l Limit) Valid() bool { return l >= 0 }

func (l Limit) String() string {
	if !l.Bounded() {
		return "unbounded"
	}
	return fmt.Sprintf("%d", int(l))
}

// --- records ---

// Message is a posted message. Search results carry no CreatedAt.
type Message struct {
	Text      string
	CreatedAt time.Time
}

func (m Message) String() string {
	if m.CreatedAt.IsZero() {
		return m.Text
	}
	return fmt.Sprintf("[%q, %s]", m.Text, m.CreatedAt.Format(time.DateTime))
}

// Location pairs an author handle with their self-declared location.
type Location struct {
	Handle   string
	Location string
}

func (l Location) String() string {
	return fmt.Sprintf("[%q, %q]", l.Handle, l.Location)
}
