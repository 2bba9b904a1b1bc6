// Package config loads typed configuration structs from environment
// variables using caarlos0/env, with an optional .env file picked up once
// via godotenv.
//
// Each configuration type is parsed at most once per process and cached, so
// components can call Load independently without coordinating startup order.
package config
