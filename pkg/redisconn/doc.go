// Package redisconn provides Redis client construction with retry and a
// health check helper. The reconciliation dedup ledger is its main consumer.
package redisconn
