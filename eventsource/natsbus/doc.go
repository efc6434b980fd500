// Package natsbus feeds IAM events published on NATS into an event listener.
//
// Messages carry a JSON envelope:
//
//	{"kind":"user","event":{"type":"LOGIN","realmId":"master",...}}
//	{"kind":"admin","adminEvent":{"operationType":"DELETE","resourceType":"USER","realmId":"master"}}
//
// Malformed messages are logged, counted and skipped; they never stop the
// subscription.
package natsbus
