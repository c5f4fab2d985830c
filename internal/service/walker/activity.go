package walker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
)

// DescriptorFilename is the file inside an activity payload that carries the learner's text.
const DescriptorFilename = "content.txt"

const quizAnswerSeparator = "\n\r"

type assignDescriptor struct {
	OnlineText string `json:"online_text"`
}

type forumDescriptor struct {
	Message string `json:"message"`
}

type quizAnswer struct {
	OpenText bool   `json:"open_text"`
	Answer   string `json:"answer"`
}

// activityText pulls the learner text out of a descriptor according to the activity type.
func activityText(activity string, raw []byte) (string, error) {
	switch activity {
	case models.ActivityAssign, models.ActivityAssignOnline:
		var d assignDescriptor
		if err := json.Unmarshal(raw, &d); err != nil {
			return "", fmt.Errorf("failed to decode %s descriptor: %w", activity, err)
		}
		return d.OnlineText, nil
	case models.ActivityForumPost:
		var d forumDescriptor
		if err := json.Unmarshal(raw, &d); err != nil {
			return "", fmt.Errorf("failed to decode %s descriptor: %w", activity, err)
		}
		return d.Message, nil
	case models.ActivityQuizAttempt:
		var answers []quizAnswer
		if err := json.Unmarshal(raw, &answers); err != nil {
			return "", fmt.Errorf("failed to decode %s descriptor: %w", activity, err)
		}
		var b strings.Builder
		for _, a := range answers {
			if a.OpenText {
				b.WriteString(a.Answer)
				b.WriteString(quizAnswerSeparator)
			}
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown activity type %q", activity)
	}
}
