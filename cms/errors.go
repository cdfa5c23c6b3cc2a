package cms

import "errors"

// Validation failures. None of them touch the document.
var (
	ErrCategoryExists   = errors.New("category id already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidCategory  = errors.New("category needs an id (lowercase letters, digits, _ or -) and a name")
	ErrReservedKey      = errors.New("category id is reserved")
	ErrStepNotFound     = errors.New("step not found")
	ErrInvalidStep      = errors.New("step needs content")
	ErrInvalidQuiz      = errors.New("question needs text, 2 to 4 answers and a valid correct answer")
	ErrQuestionNotFound = errors.New("question not found")
	ErrVersionNotFound  = errors.New("version not found")
	ErrInvalidFAQ       = errors.New("please fill in both question and answer")
	ErrFAQNotFound      = errors.New("faq entry not found")
	ErrInvalidAdmin     = errors.New("admin needs a username and a password")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrCannotMove       = errors.New("cannot move past the end of the list")
	ErrInvalidMedia     = errors.New("unsupported media file")
	ErrInvalidEstimate  = errors.New("estimated time must not be negative")
	ErrInvalidYAML      = errors.New("invalid guide yaml")
)
