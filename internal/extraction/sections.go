package extraction

// ExtractSections returns the conclusions and recommendations blocks. Each
// block runs from its label to the next known section label or end of text.
func (p *Parser) ExtractSections(text string) (conclusions, recommendations string) {
	return firstMatch(text, p.lib.conclusions), firstMatch(text, p.lib.recommendations)
}
