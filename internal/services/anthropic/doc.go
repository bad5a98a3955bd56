// Package anthropic implements the screenshot classifier against the
// Anthropic Messages API.
//
// Each call encodes one image as base64, sends exactly one request, and
// validates the reply: the first text block is stripped of code fences and
// decoded into the expected JSON shape. Provider failures surface as
// *StatusError, missing text as ErrNoText, and malformed answers as errors
// wrapping ErrContract. There is no retry; callers bound the call with their
// context deadline.
package anthropic
