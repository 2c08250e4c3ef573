package questionforge

import (
	"fmt"
	"strings"

	"github.com/abhisek/intervue/internal/interview"
)

const systemPrompt = `You are an experienced interviewer running a live, spoken interview.

Rules:
- Produce exactly ONE question or problem for the candidate.
- Return only the question text. No preamble, no answer, no hints, no solution.
- Use plain text that reads well aloud. Avoid tables unless the question needs data.
- Never repeat or rephrase a question from the "already asked" list.`

// freeFormStyles frames conversational categories.
var freeFormStyles = map[interview.Category]string{
	interview.CategoryTechnical: "You are conducting a natural, conversational technical interview.\n\n" +
		"Question type mix:\n" +
		"- Technical/conceptual (40%): core knowledge, algorithms, system design, best practices\n" +
		"- Problem-solving (25%): approach to problems, debugging, real-world scenarios\n" +
		"- Behavioral (20%): past experiences, teamwork, handling challenges\n" +
		"- Communication (15%): explaining concepts, teaching, documentation\n\n" +
		"Ask questions like a real interviewer would and build on previous answers naturally.",
	interview.CategoryHR: "You are conducting a natural, conversational HR interview.\n\n" +
		"Question type mix:\n" +
		"- Behavioral (40%): past experiences, conflict resolution, teamwork, leadership (STAR method)\n" +
		"- Motivational (25%): career goals, what drives them, why this role\n" +
		"- Situational (20%): how they would handle workplace scenarios\n" +
		"- Cultural fit (15%): work style, values, communication preferences\n\n" +
		"Keep the conversation warm and ask follow-ups based on their answers.",
	interview.CategoryCustom: "You are conducting a comprehensive interview.\n\n" +
		"Question type mix:\n" +
		"- Experience-based (35%): past projects, achievements, challenges\n" +
		"- Skills assessment (30%): technical abilities, soft skills, problem-solving\n" +
		"- Behavioral (20%): teamwork, handling pressure, learning and growth\n" +
		"- Forward-looking (15%): goals, aspirations, what they are seeking\n\n" +
		"Keep it conversational and build on previous responses.",
}

var difficultyGuides = map[interview.Difficulty]string{
	interview.DifficultyBeginner: "Difficulty: BEGINNER. Ask fundamental questions about basic concepts, definitions and simple applications. " +
		"Avoid complex scenarios. Keep the tone encouraging.",
	interview.DifficultyIntermediate: "Difficulty: INTERMEDIATE. Ask practical questions about real-world applications, problem-solving and best practices. " +
		"Scenario-based questions are welcome.",
	interview.DifficultyPro: "Difficulty: PRO. Ask about optimization, performance, scalability and trade-offs. " +
		"Challenge the candidate to think critically about design choices.",
	interview.DifficultyAdvanced: "Difficulty: ADVANCED. Ask expert-level questions about architecture, complex design decisions and deep technical knowledge. " +
		"Use sophisticated scenarios that need strategic thinking.",
}

var codingLevels = map[interview.Difficulty]string{
	interview.DifficultyBeginner:     "basic operations, straightforward implementation",
	interview.DifficultyIntermediate: "a standard algorithm built on one key technique",
	interview.DifficultyPro:          "optimization required, several techniques combined",
	interview.DifficultyAdvanced:     "tricky edge cases, only the optimal solution passes",
}

// buildUserMessage constructs the user message from the Context and Config
// limits.
func buildUserMessage(in Context, cfg Config) string {
	var b strings.Builder

	switch {
	case in.Category == interview.CategoryDSA:
		writeCodingBrief(&b, in)
	case in.Category == interview.CategoryAptitude:
		writeAptitudeBrief(&b, in)
	case in.Index <= 1:
		writeOpening(&b, in)
	default:
		writeConversation(&b, in)
	}

	if in.Total > 0 {
		fmt.Fprintf(&b, "\n\nThis is question %d of %d.", in.Index, in.Total)
	} else {
		fmt.Fprintf(&b, "\n\nThis is question %d.", in.Index)
	}

	b.WriteString("\n\nAlready asked in this interview:\n")
	b.WriteString(buildDedup(in.Prior, cfg.MaxPriorQuestions, in.Category.Verdict()))

	switch {
	case in.Category == interview.CategoryDSA:
		b.WriteString("\n\nGenerate ONE coding problem that differs from every problem above. Use the required format.")
	case in.Category == interview.CategoryAptitude:
		b.WriteString("\n\nGenerate ONE clear aptitude problem that differs from every problem above. Return only the problem statement.")
	case in.Index <= 1:
		b.WriteString("\n\nGenerate the opening now. Return only what you would say.")
	default:
		b.WriteString("\n\nGenerate ONE interview question of normal length (1-3 sentences). " +
			"Either follow up on something the candidate said or explore a new area, " +
			"and never ask the same kind of question twice. Return only the question.")
	}

	return b.String()
}

func writeCodingBrief(b *strings.Builder, in Context) {
	name, t, ok := lookupTopic(dsaTopics, in.Subtopic)
	if !ok {
		t = topic{Description: "Data Structures and Algorithms"}
	}
	fmt.Fprintf(b, "You are generating a CODING PROBLEM, not a conversational question.\n\nTopic: %s\n", t.Description)
	if len(t.Examples) > 0 {
		b.WriteString("\nValid problem types for this topic:\n")
		writeNumbered(b, t.Examples)
		fmt.Fprintf(b, "\nThe problem MUST be one of the valid types above and use %s concepts.\n", name)
	}
	b.WriteString("\nRequired format:\n" +
		"**Problem:** clear problem statement\n\n" +
		"**Example:**\nInput: sample input\nOutput: expected output\nExplanation: why the output is correct\n\n" +
		"**Constraints:**\n- expected time and space complexity\n- input size and range\n")
	if lvl, ok := codingLevels[in.Difficulty]; ok {
		fmt.Fprintf(b, "\nLevel: %s (%s).", strings.ToUpper(string(in.Difficulty)), lvl)
	}
	writeDifficulty(b, in.Difficulty)
}

func writeAptitudeBrief(b *strings.Builder, in Context) {
	name, t, ok := lookupTopic(aptitudeTopics, in.Subtopic)
	if !ok {
		t = topic{Description: "General Aptitude"}
	}
	fmt.Fprintf(b, "You are generating an APTITUDE QUESTION, not a coding problem.\n\nTopic: %s\n", t.Description)
	if len(t.Examples) > 0 {
		b.WriteString("\nValid question types for this topic:\n")
		writeNumbered(b, t.Examples)
	}
	b.WriteString("\nRequirements:\n" +
		"1. One clear problem from the valid types\n" +
		"2. All data needed to solve it is in the problem itself\n" +
		"3. No hints or solutions\n" +
		"4. Do not generate programming problems\n")
	if hint, ok := aptitudeHints[name]; ok {
		b.WriteString("\n")
		b.WriteString(hint)
		b.WriteString("\n")
	}
	writeDifficulty(b, in.Difficulty)
}

func writeOpening(b *strings.Builder, in Context) {
	role := ""
	switch in.Category {
	case interview.CategoryTechnical:
		role = "technical "
	case interview.CategoryHR:
		role = "HR "
	}
	fmt.Fprintf(b, "You are an experienced %sinterviewer opening a professional interview.\n\n", role)
	b.WriteString("Start naturally:\n" +
		"1. Briefly introduce yourself as the interviewer and thank the candidate for joining.\n" +
		"2. Ask the candidate to introduce themselves and their background.\n\n" +
		"Keep it warm, professional and conversational.")
	if in.Profile.Name != "" {
		fmt.Fprintf(b, " The candidate's name is %s.", in.Profile.Name)
	}
}

func writeConversation(b *strings.Builder, in Context) {
	if in.Category == interview.CategoryCustom && in.Scenario != nil {
		writeScenario(b, in.Scenario)
	} else {
		style, ok := freeFormStyles[in.Category]
		if !ok {
			style = freeFormStyles[interview.CategoryCustom]
		}
		b.WriteString(style)
	}

	if in.Subtopic != "" {
		name, t, ok := lookupTopic(technicalTopics, in.Subtopic)
		if !ok {
			t = topic{Description: in.Subtopic}
		}
		fmt.Fprintf(b, "\n\nCourse focus: %s\n", t.Description)
		if len(t.Examples) > 0 {
			b.WriteString("Key topics to ask about:\n")
			writeNumbered(b, t.Examples)
		}
		fmt.Fprintf(b, "Questions must test %s concepts with practical, real-world scenarios, not generic programming.", name)
	}

	writeDifficulty(b, in.Difficulty)
	writeProfile(b, in.Profile)
	writeConversationSoFar(b, in.Prior)
}

func writeScenario(b *strings.Builder, s *Scenario) {
	b.WriteString("You are conducting a personalized custom interview scenario.\n\n")
	fmt.Fprintf(b, "Scenario: %s\n", s.Description)
	setting := s.Setting
	if setting == "" {
		setting = "Standard interview setting"
	}
	fmt.Fprintf(b, "Setting: %s\n", setting)
	if len(s.Goals) > 0 {
		b.WriteString("\nWhat the candidate wants to demonstrate:\n")
		writeNumbered(b, s.Goals)
	}
	if len(s.FocusAreas) > 0 {
		b.WriteString("\nFocus areas to assess:\n")
		writeNumbered(b, s.FocusAreas)
	}
}

func writeDifficulty(b *strings.Builder, d interview.Difficulty) {
	guide, ok := difficultyGuides[d]
	if !ok {
		guide = difficultyGuides[interview.DifficultyIntermediate]
	}
	b.WriteString("\n\n")
	b.WriteString(guide)
}

// writeProfile appends career-stage and resume personalization.
func writeProfile(b *strings.Builder, p interview.Profile) {
	if p.Empty() {
		return
	}
	b.WriteString("\n\nAbout the candidate:")
	switch p.CareerStage {
	case "student":
		b.WriteString("\nThe candidate is a STUDENT with no professional work experience, looking for a first job or internship. " +
			"Ask about academic projects, coursework, group work and how they learn. " +
			"Never ask about previous jobs or workplace scenarios.")
	case "recent_graduate":
		b.WriteString("\nThe candidate graduated within the last two years and has limited professional experience. " +
			"Ask entry-level questions about academic projects, internships and the move into professional life.")
	case "professional":
		role := p.CurrentRole
		if role == "" {
			role = "professional"
		}
		fmt.Fprintf(b, "\nThe candidate is a %s with %d years of professional experience. "+
			"Ask questions suited to that level, including past projects, leadership and growth.", role, p.YearsOfExperience)
	case "career_changer":
		b.WriteString("\nThe candidate is moving into a new field. Explore their transferable skills, " +
			"their motivation for the change and how they are preparing for it.")
	}
	if p.TargetRole != "" {
		fmt.Fprintf(b, "\nThey are targeting a %s position.", p.TargetRole)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(b, "\nSkills: %s", strings.Join(p.Skills, ", "))
	}
	if p.Education != "" {
		fmt.Fprintf(b, "\nEducation: %s", p.Education)
	}
	if p.ResumeSummary != "" {
		fmt.Fprintf(b, "\nResume summary: %s\nReference their real experience and projects when it fits.", p.ResumeSummary)
	}
}

func writeConversationSoFar(b *strings.Builder, prior []interview.QAPair) {
	answered := 0
	for _, p := range prior {
		if p.Answered() {
			answered++
		}
	}
	if answered == 0 {
		return
	}
	b.WriteString("\n\nConversation so far:")
	for _, p := range prior {
		fmt.Fprintf(b, "\nQ%d: %s\nA%d: %s", p.Index, p.Question, p.Index, p.AnswerText())
	}
}

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}
