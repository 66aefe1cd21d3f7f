package enhance

import "fmt"

// Enhancement kinds. Each one selects a prompt template aimed at home
// services and tradesman resumes.
const (
	KindSkillsCertifications = "skills_certifications"
	KindProjectExperience    = "project_experience"
	KindClientQuality        = "client_quality"
)

const outputRequirements = `CRITICAL OUTPUT REQUIREMENTS:
- Output ONLY the resume content - NO code fences, NO markdown tags, NO backticks
- Use actual information from the resume - DO NOT use placeholders like [Your Name] or [X years]
- Keep all real names, dates, companies, and numbers from the original resume
- Use proper Markdown formatting with **bold text** for emphasis
- Use # for main headers, ## for section headers
- Use bullet points (- ) for lists
- Include quantifiable achievements with numbers in **bold**`

var enhancementPrompts = map[string]string{
	KindSkillsCertifications: `You are enhancing a resume for HOME SERVICES and TRADESMEN professionals. Focus on highlighting technical skills, certifications, and qualifications relevant to the trades.

` + outputRequirements + `

Enhancement Focus:
- Emphasize trade-specific skills (plumbing, electrical, HVAC, carpentry, roofing, etc.)
- Highlight all licenses, certifications, and safety training (OSHA, EPA, state licenses)
- Include specialized equipment and tool proficiencies
- Showcase any apprenticeship or vocational training
- Include union memberships or professional affiliations

Output the enhanced resume content in clean Markdown format with extensive use of **bold formatting** for key information. Make it professional, impactful, and perfect for home services and trades positions.`,

	KindProjectExperience: `You are enhancing a resume for HOME SERVICES and TRADESMEN professionals. Focus on showcasing hands-on project experience, completed work, and technical expertise.

` + outputRequirements + `

Enhancement Focus:
- Highlight specific projects completed (residential, commercial, industrial)
- Quantify work scope: square footage, property values, project budgets, completion times
- Emphasize problem-solving abilities and troubleshooting skills
- Showcase ability to work independently or lead teams
- Add any emergency service or on-call experience

Output the enhanced resume content in clean Markdown format with extensive use of **bold formatting** for key information. Make it professional, results-driven, and perfect for home services and trades positions.`,

	KindClientQuality: `You are enhancing a resume for HOME SERVICES and TRADESMEN professionals. Focus on demonstrating quality workmanship, client satisfaction, and professional reliability.

` + outputRequirements + `

Enhancement Focus:
- Highlight customer satisfaction rates, positive reviews, and testimonials
- Emphasize quality workmanship and attention to detail
- Include warranty compliance and code adherence experience
- Showcase repeat business and referral rates
- Include reliability metrics (on-time completion, within budget, etc.)

Output the enhanced resume content in clean Markdown format with extensive use of **bold formatting** for key information. Make it professional, customer-focused, and perfect for home services and trades positions.`,
}

// KnownKind reports whether kind names one of the prompt templates.
func KnownKind(kind string) bool {
	_, ok := enhancementPrompts[kind]
	return ok
}

// buildUserMessage assembles the single user message sent upstream.
func buildUserMessage(kind, resumeContent string) string {
	return fmt.Sprintf("Here is the resume content to enhance:\n\n%s\n\n%s",
		resumeContent, enhancementPrompts[kind])
}
