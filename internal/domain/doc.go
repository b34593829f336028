// Package domain defines the core value types for the bulksend campaign
// engine.
//
// Types in this package are pure values with no behavior beyond validation
// and derivation helpers. They are the shared language between the recipient
// supplier, the message builder, the quota tracker, and the send engine.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No transport handles, no file handles, no context.Context in fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Pure helper methods and constants belong here
package domain
