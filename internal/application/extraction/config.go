package extractionapp

// Config tunes the extraction orchestrator.
type Config struct {
	// AIEnabled routes untyped sheets, PDFs, images and text to the model.
	AIEnabled bool
	// ChunkRows is the maximum number of data rows per extraction request.
	ChunkRows int
	// MaxConcurrency bounds in-flight chunk requests for one file.
	MaxConcurrency int
	// MinConfidence rejects model entities scored below it.
	MinConfidence float64
	// AnalysisRows is the number of sample rows sent in the analysis phase.
	AnalysisRows int
	// MaxTextBytes caps plain-text documents embedded in a prompt.
	MaxTextBytes int
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		AIEnabled:      false,
		ChunkRows:      40,
		MaxConcurrency: 3,
		MinConfidence:  0.5,
		AnalysisRows:   8,
		MaxTextBytes:   200 * 1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkRows <= 0 {
		c.ChunkRows = d.ChunkRows
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		c.MinConfidence = d.MinConfidence
	}
	if c.AnalysisRows <= 0 {
		c.AnalysisRows = d.AnalysisRows
	}
	if c.MaxTextBytes <= 0 {
		c.MaxTextBytes = d.MaxTextBytes
	}
	return c
}
