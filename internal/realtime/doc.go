// Package realtime runs the /chatHub WebSocket endpoint. It tracks live
// connections per user group and delivers server pushes to them.
package realtime
