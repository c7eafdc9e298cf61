// Package vision asks a vision-capable chat completion model to read the name
// and printed number off a card photo.
//
// The client sends one user message holding the fixed instruction and the
// image URL, strips the markdown fencing models like to add, and decodes the
// remainder as a card.Identity. There is no retry and no re-prompt: output
// that does not parse is reported as services.ErrMalformedOutput.
package vision
