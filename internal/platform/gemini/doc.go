// Package gemini adapts Google's Gemini API (google.golang.org/genai) to the
// generation.Provider interface.
//
// One Provider serves one model. Tiers that use different Gemini models get
// their own Provider sharing a single genai client. API failures are
// normalized into *generation.ProviderError so that the error classifier can
// decide between escalation and abandonment; safety blocks are flagged as
// Blocked.
package gemini
