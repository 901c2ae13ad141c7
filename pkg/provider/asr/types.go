package asr

// KeywordBoost raises the recognition likelihood of a domain-specific word.
// Engines without native boosting support may ignore the list; the transcript
// corrector then applies it after the fact.
type KeywordBoost struct {
	// Keyword is the word or short phrase to boost.
	Keyword string

	// Boost is the engine-specific intensity. Deepgram interprets it as an
	// intensifier exponent; values around 1–10 are typical.
	Boost float64
}

// Request carries one utterance buffer and its recognition parameters.
type Request struct {
	// PCM is the raw 16-bit signed little-endian mono audio.
	PCM []byte

	// SampleRate is the sample rate of PCM in Hz.
	SampleRate int

	// Language is an optional BCP-47 hint (e.g., "en"). Empty lets the
	// engine auto-detect or use its default.
	Language string

	// Boosts is the keyword list applied to this request.
	Boosts []KeywordBoost
}

// Word is a single recognized word with timing relative to the request
// buffer. Engines that do not report word timings leave Words empty.
type Word struct {
	Text       string
	Start      float64 // seconds
	End        float64 // seconds
	Confidence float64
}

// Result is the outcome of a Transcribe call.
type Result struct {
	// Text is the full transcript. Blank means no speech was recognized.
	Text string

	// Language is the detected or assumed language code, when reported.
	Language string

	// Words holds per-word timings when the engine provides them.
	Words []Word
}
