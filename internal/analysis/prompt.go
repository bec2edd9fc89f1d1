package analysis

import "strings"

// promptTemplate asks for Refactoring Guru smells only, as a single JSON
// object. The source code is appended after the final line.
const promptTemplate = `
You are an expert in software engineering and code quality.

Analyze the source code below and identify possible CODE SMELLS, using
EXCLUSIVELY the code smell taxonomy published on Refactoring Guru
(https://refactoring.guru/refactoring/smells).

Use ONLY code smells that belong to the following Refactoring Guru
categories:
- Bloaters
- Object-Orientation Abusers
- Change Preventers
- Dispensables
- Couplers

DO NOT invent new code smells, DO NOT use classifications outside this list
and DO NOT use synonyms for the official names.

The answer MUST be EXCLUSIVELY valid JSON, with no additional text, comments
or explanations outside the JSON.

Use EXACTLY the following structure:

{
  "code_smells": [
    {
      "name": "Exact code smell name as listed on Refactoring Guru",
      "category": "One of: Bloaters | Object-Orientation Abusers | Change Preventers | Dispensables | Couplers",
      "snippet": "Relevant code excerpt or a precise description of the location",
      "justification": "Detailed technical justification",
      "impact": "Potential impact on maintainability, readability, performance and testability",
      "refactoring": "Refactoring suggestion aligned with Refactoring Guru"
    }
  ]
}

If no code smell from the list is found, return:

{
  "code_smells": []
}

Code:
`

// BuildPrompt returns the instruction template followed by the raw file
// content.
func BuildPrompt(content string) string {
	var b strings.Builder
	b.Grow(len(promptTemplate) + len(content) + 1)
	b.WriteString(promptTemplate)
	b.WriteString("\n")
	b.WriteString(content)
	return b.String()
}
