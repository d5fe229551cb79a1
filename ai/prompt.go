package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/skillmatch/core"
)

// SystemPrompt frames the extraction model's role.
const SystemPrompt = `You are an expert HR recruitment assistant. Your task is to analyze a batch of resumes, identify candidates who match a specific set of skills, and then extract key information for ONLY the matched candidates in a strict JSON format.`

const batchPromptTemplate = `The required technical skills we are looking for are: %[1]s.

Below is a collection of resumes. Each resume is clearly marked with its source filename.
--- BATCH OF RESUMES START ---
%[2]s--- BATCH OF RESUMES END ---

Your Instructions:

1. Analyze and Filter: Carefully read every resume provided in the batch above. Identify which resumes are a strong match for the required skills: "%[1]s". A strong match means the resume explicitly mentions several of these skills.

2. Extract Information for Matched Resumes ONLY: For each resume that you identified as a strong match, extract the following information and format it as a JSON object. Adhere strictly to the data types and formats specified:
- "source_file": (String) The original filename of the resume (provided in the start/end markers).
- "name": (String) The full name of the candidate.
- "contact_number": (String) The primary phone number.
- "last_3_companies": (Array of Strings) The last 3 companies the candidate worked for, most recent first. Include only official company names; exclude project names, client names and internal divisions. If fewer than 3 are clearly stated, include all that are available.
- "top_5_technical_skills": (Array of Strings) Up to 5 technical skills explicitly mentioned in the resume that are most relevant to %[1]s or most prominent in the candidate's experience.
- "years_of_experience": (Number) Total professional work experience in years, calculated from the start and end dates of all full-time positions and rounded to the nearest whole number.
- "match_score": (Number) A match score from 0-100 for how well the candidate matches "%[1]s". Weight skills and experience in the relevant technologies most.
- "score_breakdown": (String) A brief explanation (max 50 words) of why this score was assigned.
- "summary": (String) A concise summary of the candidate's background, expertise and most significant achievements, no more than 200 words.

Output Format:
Your output MUST be a single, valid JSON array [] containing one JSON object for each matched candidate. If no candidates match the required skills, you MUST return an empty array [].
Do not include any explanations, introductory text, markdown formatting, or any text outside of the final JSON array.
If a piece of information cannot be found, use null as the value for that key.`

// BuildBatchPrompt renders the user prompt for one batch. Documents appear in
// ascending ID order, each wrapped in START/END markers naming its ID.
func BuildBatchPrompt(batch core.Corpus, query core.Query) string {
	var resumes strings.Builder
	for _, doc := range batch.Documents() {
		fmt.Fprintf(&resumes, "--- START OF RESUME: %s ---\n%s\n--- END OF RESUME: %s ---\n\n", doc.ID, doc.Content, doc.ID)
	}
	return fmt.Sprintf(batchPromptTemplate, query.String(), resumes.String())
}
