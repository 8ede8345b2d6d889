// Package i18n holds the user-facing message table and the per-user language lookup.
package i18n

import (
	"fmt"

	"github.com/korjavin/gmatbot/models"
)

// Message keys
const (
	KeyWelcome         = "welcome"
	KeyHelp            = "help"
	KeySelectLanguage  = "select_language"
	KeyLanguageSet     = "lang_set"
	KeySubjectSet      = "subject_set"
	KeyQuestionHeader  = "question_header"
	KeyNotFound        = "question_not_found"
	KeyAllAnswered     = "no_questions"
	KeyCorrect         = "result_correct"
	KeyWrong           = "result_wrong"
	KeyYourChoice      = "your_choice"
	KeyExplanation     = "explanation"
	KeyNoExplanation   = "no_explanation"
	KeyTimeTaken       = "time_taken"
	KeyStatsLine       = "stats_line"
	KeyInvalidResponse = "invalid_response"
	KeyQuestionGone    = "question_gone"
	KeyNoWrong         = "no_wrong"
	KeyWrongHeader     = "wrong_header"
	KeyWrongItem       = "wrong_item"
	KeyNoAttempts      = "no_attempts"
	KeyStats           = "stats"
	KeyCurrentQuestion = "current_question"
	KeyUnknownCommand  = "unknown_command"
	KeyError           = "error"
)

var translations = map[models.Language]map[string]string{
	models.LanguageKorean: {
		KeyWelcome:         "안녕하세요! GMAT 문제풀이 봇입니다. 🤖",
		KeyHelp:            "📚 사용 가능한 명령어:\n/cr, /math, /rc, /di - 과목 선택\n/q - 다음 문제\n/q123 - 특정 번호 보기\n/wrong - 틀린 문제 보기\n/stats - 통계 보기\n/language - 언어 변경",
		KeySelectLanguage:  "언어를 선택해주세요:",
		KeyLanguageSet:     "✅ 언어가 한국어로 설정되었습니다.",
		KeySubjectSet:      "✅ 현재 과목이 [%s]로 설정되었습니다.",
		KeyQuestionHeader:  "문제 %d",
		KeyNotFound:        "%d번 문제를 찾을 수 없습니다.",
		KeyAllAnswered:     "✅ 모든 문제를 푸셨습니다!",
		KeyCorrect:         "✅ 정답입니다!",
		KeyWrong:           "❌ 오답입니다.",
		KeyYourChoice:      "당신의 선택",
		KeyExplanation:     "📝 해설",
		KeyNoExplanation:   "해설이 없습니다.",
		KeyTimeTaken:       "⏱ 풀이 시간: %d분 %d초",
		KeyStatsLine:       "📊 현재 %[2]d문제 중 %[1]d문제 정답",
		KeyInvalidResponse: "❌ 잘못된 응답 형식입니다.",
		KeyQuestionGone:    "❌ 문제 정보를 불러올 수 없습니다.",
		KeyNoWrong:         "🥳 틀린 문제가 없습니다!",
		KeyWrongHeader:     "❌ [%s] 틀린 문제",
		KeyWrongItem:       "문제 %d",
		KeyNoAttempts:      "📊 [%s] 아직 푼 문제가 없습니다.",
		KeyStats:           "📊 [%s] 정답률: %d/%d (%d%%)",
		KeyCurrentQuestion: "📌 현재 풀고 있는 문제: %d번",
		KeyUnknownCommand:  "❓ 인식할 수 없는 명령어입니다: %s",
		KeyError:           "⚠️ 오류가 발생했습니다. 나중에 다시 시도해주세요.",
	},
	models.LanguageEnglish: {
		KeyWelcome:         "Hello! This is the GMAT practice bot. 🤖",
		KeyHelp:            "📚 Available commands:\n/cr, /math, /rc, /di - Choose subject\n/q - Next question\n/q123 - Go to a question\n/wrong - View wrong answers\n/stats - View stats\n/language - Change language",
		KeySelectLanguage:  "Please select your language:",
		KeyLanguageSet:     "✅ Language set to English.",
		KeySubjectSet:      "✅ Subject set to [%s].",
		KeyQuestionHeader:  "Question %d",
		KeyNotFound:        "Question %d not found.",
		KeyAllAnswered:     "✅ You've completed all available questions!",
		KeyCorrect:         "✅ Correct!",
		KeyWrong:           "❌ Incorrect.",
		KeyYourChoice:      "Your choice",
		KeyExplanation:     "📝 Explanation",
		KeyNoExplanation:   "No explanation available.",
		KeyTimeTaken:       "⏱ Time taken: %d min %d sec",
		KeyStatsLine:       "📊 %d out of %d correct",
		KeyInvalidResponse: "❌ Invalid response.",
		KeyQuestionGone:    "❌ Could not load question info.",
		KeyNoWrong:         "🥳 No wrong answers!",
		KeyWrongHeader:     "❌ [%s] Wrong questions:",
		KeyWrongItem:       "Question %d",
		KeyNoAttempts:      "📊 [%s] No attempts yet.",
		KeyStats:           "📊 [%s] Accuracy: %d/%d (%d%%)",
		KeyCurrentQuestion: "📌 Current question: #%d",
		KeyUnknownCommand:  "❓ Unknown command: %s",
		KeyError:           "⚠️ Something went wrong. Please try again later.",
	},
}

// Text returns the message for key in lang formatted with args.
// Missing entries fall back to the default language, then to the key itself.
func Text(lang models.Language, key string, args ...any) string {
	format, ok := translations[lang][key]
	if !ok {
		format, ok = translations[models.DefaultLanguage][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
