package treeindex

// Config bounds tree construction and the inference prompts used to build it.
type Config struct {
	MinHeaders            int
	MaxDepth              int
	MaxChildren           int
	SummaryBatchSize      int
	SectionPreviewChars   int
	SynthesisPreviewChars int
}

func DefaultConfig() Config {
	return Config{
		MinHeaders:            3,
		MaxDepth:              4,
		MaxChildren:           50,
		SummaryBatchSize:      30,
		SectionPreviewChars:   500,
		SynthesisPreviewChars: 15000,
	}
}

// withDefaults fills zero fields so a partially populated Config is usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinHeaders <= 0 {
		c.MinHeaders = d.MinHeaders
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MaxChildren <= 0 {
		c.MaxChildren = d.MaxChildren
	}
	if c.SummaryBatchSize <= 0 {
		c.SummaryBatchSize = d.SummaryBatchSize
	}
	if c.SectionPreviewChars <= 0 {
		c.SectionPreviewChars = d.SectionPreviewChars
	}
	if c.SynthesisPreviewChars <= 0 {
		c.SynthesisPreviewChars = d.SynthesisPreviewChars
	}
	return c
}
