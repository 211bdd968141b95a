// Package logx provides the structured logging facade used across jobcaster.
//
// It wraps zerolog behind a small Logger/Field API so call sites stay stable
// while sinks (console, file, chat mirror) are reconfigured at runtime via
// Service.Apply. The chat sink forwards warn+ lines to the chat webhook,
// rate-limited and non-blocking: a slow or down chat room must never stall
// event processing.
package logx
