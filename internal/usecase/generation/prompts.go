package generation

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/tenderdraft/internal/domain/chunk"
)

// GenericInstruction replaces the caller's instruction when no requirements documents exist.
const GenericInstruction = "Generate a generic tender response document that presents the company " +
	"and its capabilities for a typical public procurement."

// DefaultInstruction is used when the caller gives no prompt.
const DefaultInstruction = "Generate a complete tender response that addresses every requirement."

const writerSystem = `You are an experienced bid writer producing one section of a tender response.
Write in clear, confident, factual markdown. Do not repeat the section title as a heading.
Use only capabilities supported by the company analysis and the retrieved passages.
End the section with a line "Requirements addressed:" followed by a bulleted list of the
tender requirements this section satisfies, one per bullet. Write "- none" if it satisfies none.`

const reviewerSystem = `You are a compliance reviewer for tender responses.
Compare the draft against the requirements analysis. Return markdown with:
1. A short overall verdict.
2. "Gaps": requirements that are not addressed or only partly addressed.
3. "Risks": claims in the draft that are not supported by the company analysis.
Be concise.`

const plannerSystem = `You plan the outline of a tender response.
Return only the section titles, one per line, without numbering or commentary.
Use between 4 and 10 sections.`

func sectionPrompt(instruction string, in Request, analyses Analyses, passages []chunk.Match, title string) string {
	var b strings.Builder
	b.WriteString("# Instruction\n\n")
	b.WriteString(instruction)
	b.WriteString("\n\n# Requirements analysis\n\n")
	b.WriteString(orNone(analyses.Requirements))
	b.WriteString("\n\n# Company analysis\n\n")
	b.WriteString(orNone(analyses.Capabilities))
	if in.CompanyContext != "" {
		b.WriteString("\n\n# Company context\n\n")
		b.WriteString(in.CompanyContext)
	}
	if in.AdditionalContext != "" {
		b.WriteString("\n\n# Additional context\n\n")
		b.WriteString(in.AdditionalContext)
	}
	if len(passages) > 0 {
		b.WriteString("\n\n# Relevant company passages\n")
		for i, m := range passages {
			fmt.Fprintf(&b, "\n[%d] (%s)\n%s\n", i+1, m.Chunk.Title, strings.TrimSpace(m.Chunk.Text))
		}
	}
	b.WriteString("\n\n# Section to write\n\n")
	b.WriteString(title)
	return b.String()
}

func reviewPrompt(analyses Analyses, draft string) string {
	return "# Requirements analysis\n\n" + orNone(analyses.Requirements) +
		"\n\n# Company analysis\n\n" + orNone(analyses.Capabilities) +
		"\n\n# Draft\n\n" + draft
}

func plannerPrompt(instruction string, analyses Analyses) string {
	return "# Instruction\n\n" + instruction +
		"\n\n# Requirements analysis\n\n" + orNone(analyses.Requirements)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
