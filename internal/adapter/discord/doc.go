// Package discord adapts discordgo to the guild directory and guild manager
// ports. All REST calls share one client that applies a per-call timeout,
// a circuit breaker and request metrics.
package discord
