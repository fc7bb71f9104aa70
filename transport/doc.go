// Package transport is an optional NATS adapter around an in-process
// planning manager.
//
// The planning core itself is transport-free; this package wires it to a
// messaging fabric for deployments where detections and results cross
// process boundaries:
//
//   - Target ingestion: detections published to the target subject (one JSON
//     TargetDescriptor per message) are decoded and submitted to the manager.
//   - Result publication: completed cycle results are published as JSON to
//     the result subject, typically wired through the manager's
//     OnCycleCompleted hook via CycleHook.
//   - Assignment bulletin: each cycle's final assignments are written
//     per unit into a JetStream KV bucket, so a tracking unit's on-board
//     process can watch its own key instead of parsing whole cycle results.
//
// The adapter is deliberately thin: malformed payloads are logged and
// dropped, and publication failures never affect cycle progress.
package transport
