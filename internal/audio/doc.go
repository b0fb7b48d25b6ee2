// Package audio plays raw PCM clips through oto/v3 and reports when each
// clip has finished. Build with the nocgo tag to get a stub that always
// fails, for environments without an audio stack.
package audio
