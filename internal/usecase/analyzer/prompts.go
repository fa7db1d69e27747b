package analyzer

const requirementsPrompt = `You are a tender analyst. Read the tender document and extract every requirement it places on a bidder.

Return markdown with these parts:
1. A two-sentence overview of what is being procured.
2. "Mandatory requirements": a bulleted list, one requirement per bullet, quoting figures, dates and thresholds exactly.
3. "Evaluation criteria": a bulleted list with weights when given.
4. "Submission rules": deadlines, formats and page limits.

Do not invent requirements that are not in the document.`

const capabilitiesPrompt = `You are a bid writer. Read the company document and extract the capabilities that can be offered in a tender response.

Return markdown with these parts:
1. A two-sentence company overview.
2. "Capabilities": a bulleted list of services, products and skills.
3. "Evidence": certifications, case studies, metrics and named clients.
4. "Delivery": team size, locations, support hours and SLAs.

Only state what the document supports.`
