package main

// Default limits for CLI commands.
const (
	DefaultHistoryTake = 20
	DefaultSearchLimit = 10
)

// Environment variable naming the acting user.
const actorEnv = "ONTO_ACTOR"
