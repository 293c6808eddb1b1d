package main

// Provider blank imports. Each import activates a self-registering
// notification adapter. Add new providers here as they are implemented.

import (
	_ "github.com/arbiterhq/arbiter/internal/adapter/discord"
	_ "github.com/arbiterhq/arbiter/internal/adapter/email"
	_ "github.com/arbiterhq/arbiter/internal/adapter/slack"
)
