package host

import (
	"fmt"

	"github.com/rbright/viva/internal/model"
	"github.com/rbright/viva/internal/transcript"
)

// expectedAnswerLimit caps how much of an expected answer is read aloud.
const expectedAnswerLimit = 100

// Lines renders the host's spoken and displayed text in one language.
type Lines struct {
	lang model.Language
}

func LinesFor(lang model.Language) Lines {
	if lang != model.LanguageEnglish {
		lang = model.LanguageHindi
	}
	return Lines{lang: lang}
}

func (l Lines) hindi() bool {
	return l.lang == model.LanguageHindi
}

func (l Lines) Welcome(name string, source string) string {
	if l.hindi() {
		return fmt.Sprintf("स्वागत है %s! मैं आपका host हूँ। आज हम %s के बारे में कुछ सवाल पूछेंगे। क्या आप तैयार हैं?", name, source)
	}
	return fmt.Sprintf("Welcome %s! I'm your host. Today we'll discuss %s. Are you ready?", name, source)
}

func (l Lines) Question(number int, text string) string {
	if l.hindi() {
		return fmt.Sprintf("सवाल %d: %s", number, text)
	}
	return fmt.Sprintf("Question %d: %s", number, text)
}

func (l Lines) Preparing() string {
	if l.hindi() {
		return "अगला सवाल तैयार हो रहा है..."
	}
	return "The next question is being prepared..."
}

func (l Lines) Listening() string {
	if l.hindi() {
		return "मैं सुन रहा हूँ... बोलिए"
	}
	return "I'm listening... please speak"
}

func (l Lines) Checking() string {
	if l.hindi() {
		return "आपका जवाब check कर रहा हूँ..."
	}
	return "Checking your answer..."
}

func (l Lines) Inaudible() string {
	if l.hindi() {
		return "आपकी आवाज़ सुनाई नहीं दी। कृपया फिर से बोलें।"
	}
	return "I couldn't hear you. Please speak again."
}

func (l Lines) Retry() string {
	if l.hindi() {
		return "कोई समस्या आई। फिर से try करें।"
	}
	return "Something went wrong. Please try again."
}

func (l Lines) MicUnavailable() string {
	if l.hindi() {
		return "Microphone उपलब्ध नहीं है। कृपया अपना जवाब type करें।"
	}
	return "The microphone is unavailable. Please type your answer."
}

// Feedback is the spoken reaction to an evaluated answer. Non-correct
// answers read back the expected answer, truncated.
func (l Lines) Feedback(class model.Classification, expected string) string {
	expected = transcript.Truncate(expected, expectedAnswerLimit)
	switch class {
	case model.Correct:
		if l.hindi() {
			return "बिल्कुल सही! शाबाश!"
		}
		return "Absolutely right! Well done!"
	case model.Partial:
		if l.hindi() {
			return "ठीक है, लेकिन पूरा जवाब था: " + expected
		}
		return "Good, but the complete answer was: " + expected
	default:
		if l.hindi() {
			return "अफ़सोस, सही जवाब था: " + expected
		}
		return "Sorry, the correct answer was: " + expected
	}
}

// Verdict is the short on-screen label for a classification.
func (l Lines) Verdict(class model.Classification) string {
	switch class {
	case model.Correct:
		if l.hindi() {
			return "बिल्कुल सही!"
		}
		return "Correct!"
	case model.Partial:
		if l.hindi() {
			return "आंशिक रूप से सही"
		}
		return "Partially correct"
	default:
		if l.hindi() {
			return "गलत जवाब"
		}
		return "Wrong answer"
	}
}

// Summary picks the closing line by percent: >=80, >=50, else.
func (l Lines) Summary(name string, tally model.Tally) string {
	if name == "" {
		name = "Candidate"
	}
	switch {
	case tally.Percent >= 80:
		if l.hindi() {
			return fmt.Sprintf("शानदार %s! आपने %d में से %d सवालों का सही जवाब दिया। Excellent!", name, tally.Total, tally.Correct)
		}
		return fmt.Sprintf("Excellent %s! You answered %d of %d questions correctly.", name, tally.Correct, tally.Total)
	case tally.Percent >= 50:
		if l.hindi() {
			return fmt.Sprintf("अच्छा %s! आपने %d में से %d सही किए। थोड़ी और practice करें!", name, tally.Total, tally.Correct)
		}
		return fmt.Sprintf("Good %s! You got %d of %d right. A little more practice!", name, tally.Correct, tally.Total)
	default:
		if l.hindi() {
			return fmt.Sprintf("%s, आपने %d में से %d सही किए। Study material फिर से पढ़ें।", name, tally.Total, tally.Correct)
		}
		return fmt.Sprintf("%s, you got %d of %d right. Please review the study material.", name, tally.Correct, tally.Total)
	}
}

func (l Lines) NoQuestions() string {
	if l.hindi() {
		return "सवाल तैयार नहीं हो सके। कृपया बाद में फिर से कोशिश करें।"
	}
	return "Questions could not be prepared. Please try again later."
}

func (l Lines) NoAnswers() string {
	if l.hindi() {
		return "कोई जवाब दर्ज नहीं हुआ। Viva फिर से शुरू करें।"
	}
	return "No answers were recorded. Please start the viva again."
}

func (l Lines) Cancelled() string {
	if l.hindi() {
		return "Viva रद्द कर दिया गया।"
	}
	return "The viva was cancelled."
}

func (l Lines) VerifyPrompt() string {
	if l.hindi() {
		return "कृपया अपना Punch ID verify करें"
	}
	return "Please verify your punch ID"
}

func (l Lines) SelectSourcePrompt(kind model.SourceKind) string {
	if kind == model.SourceMachine {
		if l.hindi() {
			return "कृपया एक Machine चुनें"
		}
		return "Please choose a machine"
	}
	if l.hindi() {
		return "कृपया एक Training Topic चुनें"
	}
	return "Please choose a training topic"
}

func (l Lines) PunchIDRequired() string {
	if l.hindi() {
		return "Punch ID डालें"
	}
	return "Enter a punch ID"
}

func (l Lines) EmployeeNotFound() string {
	return "Invalid Punch ID - Employee not found"
}

func (l Lines) ServerError() string {
	return "Server error. Please try again."
}

func (l Lines) NameRequired() string {
	if l.hindi() {
		return "कृपया अपना नाम लिखें"
	}
	return "Please enter your name"
}
