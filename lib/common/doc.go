// Package common holds the configuration and logging setup shared by all dCol packages.
//
// Key Components:
//
//   - ClientConfig: Endpoint, reconnect policy, lock spin policy, codec selection and log
//     level of a process. The cmd package fills it from flags, environment variables and
//     .env files, library users can build it directly or start from DefaultClientConfig.
//
//   - Logging: dCol logs through dragonboat's logger package. Every package declares its own
//     named logger (conn, lockmgr, collections, rbackend, mbackend). InitLoggers installs a
//     factory that prints "LEVEL | package | message" lines to stderr and sets the level of
//     all dCol loggers at once.
package common
