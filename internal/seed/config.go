// Package seed generates a deterministic demo dataset and loads it into a
// store or submits it to a running server.
package seed

import (
	"runtime"
	"time"
)

// Default configuration constants.
const (
	DefaultUsers          = 40
	DefaultSeed           = 42
	DefaultEdgesPerUser   = 4
	DefaultMuteEvery      = 7
	DefaultContentPerUser = 6
	defaultWorkerFactor   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 10 * time.Second
)

// Config holds generation and load settings.
type Config struct {
	Users          int           // number of users; every fourth one is a coach
	Seed           uint64        // PRNG seed; equal seeds give equal datasets
	EdgesPerUser   int           // outgoing visibility edges per user
	MuteEvery      int           // every n-th edge is muted; zero mutes none
	ContentPerUser int           // content records per user, spread over every kind
	Now            time.Time     // reference time for all timestamps
	Workers        int           // concurrent writers or HTTP submitters
	Timeout        time.Duration // HTTP request timeout
}

// DefaultConfig returns the settings used by the CLI when no flags are given.
func DefaultConfig() Config {
	return Config{
		Users:          DefaultUsers,
		Seed:           DefaultSeed,
		EdgesPerUser:   DefaultEdgesPerUser,
		MuteEvery:      DefaultMuteEvery,
		ContentPerUser: DefaultContentPerUser,
		Now:            time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		Workers:        runtime.NumCPU() * defaultWorkerFactor,
		Timeout:        defaultTimeout,
	}
}

// Stats summarises a load or submit run.
type Stats struct {
	Users       int
	Edges       int
	MutedEdges  int
	Submissions int
	Duplicates  int
	Failed      int
	Content     int
	Engagements int
	Markers     int
	Duration    time.Duration
}
