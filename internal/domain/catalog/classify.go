package catalog

import "strings"

// ══════════════════════════════════════════════════════════════════════════════
// FIELD-OF-STUDY CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// fieldKeyword maps a title substring to a broad field of education.
// Order matters: earlier entries win, so the more specific professions
// come before catch-alls like "science".
type fieldKeyword struct {
	keywords []string
	field    string
}

var fieldKeywords = []fieldKeyword{
	// Order matters: more specific fields checked first to avoid false
	// matches (psychology must beat the generic "science" entry).
	{[]string{
		"education", "teaching", "teach ", "pedagogy", "tesol", "childhood",
		"classroom", "curriculum",
	}, "Education"},
	{[]string{
		"nursing", "medicine", "medical", "health", "pharmacy", "physiotherapy",
		"occupational therapy", "speech pathology", "dentistry", "dental",
		"nutrition", "dietetics", "midwifery", "paramedic", "rehabilitation",
		"exercise science", "exercise physiology", "public health", "chiropractic",
		"podiatry", "optometry", "vision science", "clinical", "biomedical science",
		"anatomy", "surgical", "medical radiation", "aged care", "disability",
		"sonography", "epidemiology", "infectious disease", "allergic disease",
		"occupational hygiene", "cardiac", "autism", "neurodivergent",
	}, "Health"},
	{[]string{
		"engineering", "mechatronic", "aerospace", "aviation", "telecommunications",
		"remotely piloted",
	}, "Engineering and Related Technologies"},
	{[]string{
		"information technology", "computer science", "computing", "cyber security",
		"cybersecurity", "data science", "artificial intelligence",
		"information systems", "game development", "game design",
		"games development", "interactive media", "interactive technology",
	}, "Information Technology"},
	{[]string{
		"business", "commerce", "accounting", "finance", "marketing",
		"economics", "banking", "actuarial", "entrepreneurship",
		"human resource", "supply chain", "logistics", "property",
		"tourism", "hotel", "event management", "sport management",
		"sports management", "aviation management", "football",
		"financial technology", "coaching", "high performance sport",
		"sport ", "master of management", "bachelor of management",
		"diploma of management", "certificate in management",
		"project management", "start up", "startup",
	}, "Management and Commerce"},
	{[]string{
		"design", "music", "film", "animation", "photography", "creative",
		"visual art", "fine art", "performing art", "theatre", "graphic design",
		"interior design", "fashion", "media production", "screen", "audio",
		"digital media", "illustration", "sound production", "dance",
		"communication design", " art ",
	}, "Creative Arts"},
	{[]string{
		"science", "physics", "chemistry", "biology", "mathematics", "geology",
		"environmental science", "marine", "earth science", "astronomy",
		"biochemistry", "biotechnology", "genetics", "microbiology", "zoology",
		"ecology", "conservation biology", "neuroscience", "statistics",
		"mathematical", "forensic", "scientific",
	}, "Natural and Physical Sciences"},
	{[]string{
		"law", "juris doctor", "legal", "criminology", "psychology",
		"social work", "social science", "sociology", "anthropology",
		"political", "international studies", "international relations",
		"philosophy", "history", "historical", "languages", "linguistics",
		"communication", "journalism", "media", "theology", "theological",
		"ministry", "divinity", "counselling", "human services",
		"security studies", "justice", "liberal arts", "liberal studies",
		"development studies", "gender studies", "indigenous", "aboriginal",
		"policing", "human rights", "archaeology", "welfare", "youth work",
		"interpreting", "translation", "intelligence", "strategy and security",
		"public policy", "policy", "catholic thought", "modern slavery",
		"bioethics", "ethics", "bachelor of arts", "diploma of arts",
	}, "Society and Culture"},
	{[]string{
		"architecture", "architectural", "building", "construction",
		"built environment", "landscape arch", "urban planning", "planning",
		"surveying", "quantity surveying", "bushfire protection",
	}, "Architecture and Building"},
	{[]string{
		"agriculture", "agricultural", "veterinary", "horticulture", "forestry",
		"environmental management", "natural resource", "wildlife",
		"animal science", "sustainability", "sustainable development",
		"environmental studies", "environment",
	}, "Agriculture, Environmental and Related Studies"},
	{[]string{
		"culinary", "food science", "food technology", "cookery",
	}, "Food, Hospitality and Personal Services"},
}

// enablingPatterns are title fragments marking enabling and pathway
// programs, which are classified as mixed-field regardless of any
// subject keyword they happen to contain.
var enablingPatterns = []string{
	"uniready",
	"open foundation",
	"foundation studies",
	"empowered",
	"university preparation",
	"enabling program",
	"entrance program",
}

const fieldMixed = "Mixed Field Programs"

// FieldLabels maps full broad-field names to short display labels.
var FieldLabels = map[string]string{
	"Agriculture, Environmental and Related Studies": "Agriculture & Environment",
	"Architecture and Building":                      "Architecture & Building",
	"Creative Arts":                                  "Creative Arts",
	"Education":                                      "Education",
	"Engineering and Related Technologies":           "Engineering",
	"Food, Hospitality and Personal Services":        "Food & Hospitality",
	"Health":                                         "Health",
	"Information Technology":                         "IT",
	"Management and Commerce":                        "Management & Commerce",
	"Mixed Field Programs":                           "Mixed / Other",
	"Natural and Physical Sciences":                  "Sciences",
	"Society and Culture":                            "Society & Culture",
}

// FieldLabel returns the short display label for a broad field,
// falling back to the full name.
func FieldLabel(field string) string {
	if l, ok := FieldLabels[field]; ok {
		return l
	}
	return field
}

// ClassifyField assigns a broad field of education to a course from
// its title, falling back to the disclosed areas-of-study text when
// the title matches nothing.
func ClassifyField(title, areasOfStudy string) string {
	lower := strings.ToLower(title)
	for _, p := range enablingPatterns {
		if strings.Contains(lower, p) {
			return fieldMixed
		}
	}
	if f, ok := matchField(lower); ok {
		return f
	}
	if f, ok := matchField(strings.ToLower(areasOfStudy)); ok {
		return f
	}
	return fieldMixed
}

func matchField(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, fk := range fieldKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(text, kw) {
				return fk.field, true
			}
		}
	}
	return "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// DISCIPLINE CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// disciplineKeyword maps title substrings to a named discipline used
// for cross-institution comparison. Order matters: regulated
// professions come first so "Bachelor of Laws/Arts" indexes as Law.
type disciplineKeyword struct {
	keywords   []string
	discipline string
}

var disciplineKeywords = []disciplineKeyword{
	{[]string{"law", "legal"}, "Law"},
	{[]string{"nursing", "midwifery"}, "Nursing"},
	{[]string{"medicine", "medical science", "clinical science"}, "Medicine"},
	{[]string{"pharmacy", "pharmaceutical"}, "Pharmacy"},
	{[]string{"physiotherapy", "physical therapy"}, "Physiotherapy"},
	{[]string{"occupational therapy"}, "Occupational Therapy"},
	{[]string{"speech pathol"}, "Speech Pathology"},
	{[]string{"dentistry", "dental", "oral health"}, "Dentistry"},
	{[]string{"psychology", "psychological"}, "Psychology"},
	{[]string{"social work"}, "Social Work"},
	{[]string{"criminolog", "criminal justice", "policing"}, "Criminology"},
	{[]string{"engineering", "mechatronic"}, "Engineering"},
	{[]string{"architecture", "built environment", "interior architecture"}, "Architecture"},
	{[]string{"computer science", "software", "cyber", "information technology"}, "Computer Science"},
	{[]string{"data science", "data analytics"}, "Data Science"},
	{[]string{"education", "teaching"}, "Education"},
	{[]string{"accounting"}, "Accounting"},
	{[]string{"commerce", "business"}, "Commerce"},
	{[]string{"economics", "actuarial"}, "Economics"},
	{[]string{"science"}, "Science"},
	{[]string{"arts"}, "Arts"},
	{[]string{"communication", "media", "journalism"}, "Communication"},
	{[]string{"design"}, "Design"},
	{[]string{"music", "conservatorium"}, "Music"},
}

// ClassifyDiscipline returns the first discipline a course title
// matches, or "" when none applies.
func ClassifyDiscipline(title string) string {
	lower := strings.ToLower(title)
	for _, dk := range disciplineKeywords {
		for _, kw := range dk.keywords {
			if strings.Contains(lower, kw) {
				return dk.discipline
			}
		}
	}
	return ""
}

// AllDisciplines returns every discipline a title matches, in keyword
// order. Double degrees ("Bachelor of Laws/Bachelor of Commerce")
// index under each component so comparison finds them from either
// side.
func AllDisciplines(title string) []string {
	lower := strings.ToLower(title)
	var out []string
	for _, dk := range disciplineKeywords {
		for _, kw := range dk.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, dk.discipline)
				break
			}
		}
	}
	return out
}
