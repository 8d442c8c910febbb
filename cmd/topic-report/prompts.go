package main

// labelBatchInstructions asks for one label per digest line. The generic-term
// and named-entity bans mirror the validator in the review package; stating
// them here just reduces how often the fallback path has to run.
const labelBatchInstructions = `Generate short (2-4 word) labels for conversation topic clusters.

Rules:
- Labels must be CONCISE (2-4 words max)
- Find the COMMON THEME that connects ALL examples in a cluster
- Add a touch of wit or light sarcasm while staying accurate to the content
- NO generic labels (Topic, Cluster, Miscellaneous, General, Other, Various)
- NO named entities (people, places, companies, products)
- Describe the ACTIVITY or INTENT
- Examples: Debugging Desperation, Recipe Rescue Ops, Existential Code Crisis

Output format: one label per line as 'N: Label'
IMPORTANT: Plain text only. No markdown, no asterisks, no quotes, no formatting.`

// singleLabelInstructions drives the stricter per-cluster fallback; the
// response is forced into a JSON schema, so the prompt only has to worry
// about label quality.
const singleLabelInstructions = `You label one cluster of conversation openers.

Produce a single short (2-3 word) label capturing the common theme of ALL the examples.
- Describe the ACTIVITY or INTENT, with a touch of wit
- NO generic words (topic, cluster, miscellaneous, general, other, various)
- NO named entities (people, places, companies, products)

Return JSON matching the provided schema.`

const tarotInstructions = `Create a tarot card reading based on these conversation clusters.

Output format (use markdown):
**[MAJOR ARCANA CARD]** — *[Creative 2-3 word persona title]*

[Card illustration description, ~40 words. Include 3-5 concrete visual symbols drawn directly from their topics.]

RULES:
- Pick a fitting Major Arcana card (The Magician, The Hermit, The Tower, etc.)
- Persona title should be creative and specific to their interests
- Illustration must have CONCRETE objects from their topics
- Avoid generic mystical language`
