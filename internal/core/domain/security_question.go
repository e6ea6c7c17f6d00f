package domain

import (
	"strings"
	"time"
)

const (
	// MinSecurityQuestions is the smallest accepted question set size.
	MinSecurityQuestions = 3
	// MaxSecurityQuestions is the largest accepted question set size.
	MaxSecurityQuestions = 5
)

// SecurityQuestion pairs a challenge question with the hash of its
// answer and tracks verification failures.
type SecurityQuestion struct {
	question       string
	hashedAnswer   string
	createdAt      time.Time
	lastUsedAt     *time.Time
	failedAttempts int
}

// NewSecurityQuestion hashes the answer and builds a question.
func NewSecurityQuestion(question, answer string, hasher Hasher, now time.Time) (SecurityQuestion, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return SecurityQuestion{}, NewValidationError("question", "question text is required")
	}
	if strings.TrimSpace(answer) == "" {
		return SecurityQuestion{}, NewValidationError("answer", "answer is required")
	}

	hashed, err := hasher.Hash(normalizeAnswer(answer))
	if err != nil {
		return SecurityQuestion{}, err
	}

	return SecurityQuestion{
		question:     question,
		hashedAnswer: hashed,
		createdAt:    now.UTC(),
	}, nil
}

// RehydrateSecurityQuestion reconstructs a question from stored fields.
func RehydrateSecurityQuestion(question, hashedAnswer string, createdAt time.Time, lastUsedAt *time.Time, failedAttempts int) (SecurityQuestion, error) {
	if strings.TrimSpace(question) == "" {
		return SecurityQuestion{}, NewValidationError("question", "question text is required")
	}
	if strings.TrimSpace(hashedAnswer) == "" {
		return SecurityQuestion{}, NewValidationError("hashedAnswer", "hashed answer is required")
	}
	return SecurityQuestion{
		question:       question,
		hashedAnswer:   hashedAnswer,
		createdAt:      createdAt,
		lastUsedAt:     lastUsedAt,
		failedAttempts: failedAttempts,
	}, nil
}

// Question returns the challenge text.
func (q SecurityQuestion) Question() string { return q.question }

// HashedAnswer returns the stored answer hash.
func (q SecurityQuestion) HashedAnswer() string { return q.hashedAnswer }

// CreatedAt returns when the question was enrolled.
func (q SecurityQuestion) CreatedAt() time.Time { return q.createdAt }

// LastUsedAt returns when the question was last answered correctly.
func (q SecurityQuestion) LastUsedAt() *time.Time { return q.lastUsedAt }

// FailedAttempts returns the consecutive failed answer count.
func (q SecurityQuestion) FailedAttempts() int { return q.failedAttempts }

// VerifyAnswer checks the candidate answer. A match resets the failure
// counter and stamps last-used; a mismatch increments the counter.
func (q *SecurityQuestion) VerifyAnswer(answer string, hasher Hasher, now time.Time) (bool, error) {
	ok, err := hasher.Verify(normalizeAnswer(answer), q.hashedAnswer)
	if err != nil {
		return false, err
	}

	if ok {
		used := now.UTC()
		q.lastUsedAt = &used
		q.failedAttempts = 0
		return true, nil
	}

	q.failedAttempts++
	return false, nil
}

// Equal compares questions by challenge text and answer hash only.
// Attempt counters and timestamps are deliberately excluded, so two
// questions with the same text and hash are interchangeable.
func (q SecurityQuestion) Equal(other SecurityQuestion) bool {
	return q.question == other.question && q.hashedAnswer == other.hashedAnswer
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// SecurityQuestionSet is an ordered collection of 3 to 5 security
// questions. Arity is enforced at construction; ChangeQuestion replaces
// entries in place and cannot change the size.
type SecurityQuestionSet struct {
	questions []SecurityQuestion
}

// NewSecurityQuestionSet validates arity and builds a set.
func NewSecurityQuestionSet(questions []SecurityQuestion) (SecurityQuestionSet, error) {
	if len(questions) < MinSecurityQuestions || len(questions) > MaxSecurityQuestions {
		return SecurityQuestionSet{}, NewPolicyError("arity", "a security question set requires between 3 and 5 questions")
	}
	copied := make([]SecurityQuestion, len(questions))
	copy(copied, questions)
	return SecurityQuestionSet{questions: copied}, nil
}

// Questions returns a copy of the ordered questions.
func (s SecurityQuestionSet) Questions() []SecurityQuestion {
	copied := make([]SecurityQuestion, len(s.questions))
	copy(copied, s.questions)
	return copied
}

// Len returns the number of questions in the set.
func (s SecurityQuestionSet) Len() int { return len(s.questions) }

// VerifyAnswers checks all answers against the set in order. The answer
// count must match the set size exactly and every answer must be
// correct; any mismatch fails the whole set. Per-question failure
// counters are updated as each answer is checked.
func (s *SecurityQuestionSet) VerifyAnswers(answers []string, hasher Hasher, now time.Time) (bool, error) {
	if len(answers) != len(s.questions) {
		return false, nil
	}

	allCorrect := true
	for i := range s.questions {
		ok, err := s.questions[i].VerifyAnswer(answers[i], hasher, now)
		if err != nil {
			return false, err
		}
		if !ok {
			allCorrect = false
		}
	}

	return allCorrect, nil
}

// ChangeQuestion replaces the question at index with a new one.
func (s *SecurityQuestionSet) ChangeQuestion(index int, question SecurityQuestion) error {
	if index < 0 || index >= len(s.questions) {
		return NewValidationError("index", "question index out of range")
	}
	s.questions[index] = question
	return nil
}
