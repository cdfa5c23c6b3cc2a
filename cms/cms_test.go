package cms

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"induction-portal/auth"
	"induction-portal/models"
)

func TestCreateCategory(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateCategory(ctx, "badge", "🎫 7. Badge Access", "admin"))
	assert.ErrorIs(t, svc.CreateCategory(ctx, "badge", "Other", "admin"), ErrCategoryExists)
	assert.ErrorIs(t, svc.CreateCategory(ctx, "", "Name", "admin"), ErrInvalidCategory)
	assert.ErrorIs(t, svc.CreateCategory(ctx, "x", " ", "admin"), ErrInvalidCategory)
	assert.ErrorIs(t, svc.CreateCategory(ctx, "Bad Key", "Name", "admin"), ErrInvalidCategory)
	assert.ErrorIs(t, svc.CreateCategory(ctx, "faq", "FAQ", "admin"), ErrReservedKey)
	assert.ErrorIs(t, svc.CreateCategory(ctx, "admin", "Admin", "admin"), ErrReservedKey)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	keys := doc.CategoriesList.Keys()
	assert.Equal(t, "badge", keys[len(keys)-1])
	name, _ := doc.CategoriesList.Name("badge")
	assert.Equal(t, "🎫 7. Badge Access", name)
	require.NotNil(t, doc.Category("badge"))
	assert.Empty(t, doc.Category("badge").Steps)
}

func TestDeleteCategory_KeepsHistory(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedGuide(t, store, "vpn")

	require.NoError(t, svc.DeleteCategory(ctx, "vpn", "admin"))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, "vpn", "admin"), ErrCategoryNotFound)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, doc.CategoriesList.Has("vpn"))
	assert.Nil(t, doc.Category("vpn"))
	require.Len(t, doc.VersionHistory["vpn"], 1)
	assert.Equal(t, "original", doc.VersionHistory["vpn"][0].ContentSnapshot.Description)
}

func TestMoveAndRenameCategory(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.MoveCategory(ctx, "vpn", -1))
	assert.ErrorIs(t, svc.MoveCategory(ctx, "vpn", -1), ErrCannotMove)
	assert.ErrorIs(t, svc.MoveCategory(ctx, "other", 1), ErrCannotMove)
	assert.ErrorIs(t, svc.MoveCategory(ctx, "nope", 1), ErrCategoryNotFound)
	require.NoError(t, svc.RenameCategory(ctx, "vpn", "🛡️ VPN", "admin"))

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vpn", "mfa", "outlook", "mobile", "software_center", "other"}, doc.CategoriesList.Keys())
	name, _ := doc.CategoriesList.Name("vpn")
	assert.Equal(t, "🛡️ VPN", name)
}

func TestSteps(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedGuide(t, store, "vpn")

	require.NoError(t, svc.AddStep(ctx, "vpn", models.Step{Title: "three"}, "admin"))
	require.NoError(t, svc.AddMediaSteps(ctx, "vpn", []string{"demo.mp4", "shot.png"}, "admin"))
	require.NoError(t, svc.AddVideoLinkStep(ctx, "vpn", "https://example.com/v", "admin"))
	assert.ErrorIs(t, svc.AddVideoLinkStep(ctx, "vpn", "  ", "admin"), ErrInvalidStep)
	require.NoError(t, svc.UpdateStep(ctx, "vpn", 0, "uno", "primo", "", "admin"))
	require.NoError(t, svc.ReplaceStepMedia(ctx, "vpn", 1, "new.png", "admin"))
	require.NoError(t, svc.MoveStep(ctx, "vpn", 2, -1, "admin"))
	assert.ErrorIs(t, svc.MoveStep(ctx, "vpn", 0, -1, "admin"), ErrCannotMove)
	assert.ErrorIs(t, svc.UpdateStep(ctx, "vpn", 42, "", "", "", "admin"), ErrStepNotFound)
	assert.ErrorIs(t, svc.AddStep(ctx, "ghost", models.Step{Title: "x"}, "admin"), ErrCategoryNotFound)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	steps := doc.Category("vpn").Steps
	require.Len(t, steps, 6)
	assert.Equal(t, "uno", steps[0].Title)
	assert.Equal(t, "three", steps[1].Title)
	assert.Equal(t, "new.png", steps[2].Image)
	assert.Equal(t, "**Instructions:** Watch the Video above...", steps[3].Text)
	assert.Equal(t, "**Instructions:** Watch the Image above...", steps[4].Text)
	assert.Equal(t, "Video Tutorial", steps[5].Title)
}

func TestQuizValidation(t *testing.T) {
	q, err := NewQuestion("Which port?", []string{"80", "", "443", ""}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"80", "443"}, q.Answers)

	_, err = NewQuestion("Which port?", []string{"80", "", "", ""}, 0)
	assert.ErrorIs(t, err, ErrInvalidQuiz)
	_, err = NewQuestion("", []string{"a", "b"}, 0)
	assert.ErrorIs(t, err, ErrInvalidQuiz)
	_, err = NewQuestion("q", []string{"a", "b", "", "d"}, 3)
	assert.ErrorIs(t, err, ErrInvalidQuiz, "correct must index the kept answers")
	assert.ErrorIs(t, ValidateQuestion(models.QuizQuestion{Q: "q", Answers: []string{"a", "b", "c", "d", "e"}}), ErrInvalidQuiz)
	assert.ErrorIs(t, ValidateQuestion(models.QuizQuestion{Q: "q", Answers: []string{"a", "b"}, Correct: -1}), ErrInvalidQuiz)
	assert.ErrorIs(t, ValidateQuestion(models.QuizQuestion{Q: " \t", Answers: []string{"a", "b"}}), ErrInvalidQuiz)
}

func TestQuizEditing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedGuide(t, store, "vpn")

	err := svc.AddQuestion(ctx, "vpn", models.QuizQuestion{Q: "bad", Answers: []string{"only"}}, "admin")
	assert.ErrorIs(t, err, ErrInvalidQuiz)

	require.NoError(t, svc.AddQuestion(ctx, "vpn", models.QuizQuestion{Q: "VPN client?", Answers: []string{"FortiClient", "Notepad"}, Correct: 0}, "admin"))
	quiz, err := svc.Quiz(ctx, "vpn")
	require.NoError(t, err)
	require.Len(t, quiz, 2)

	require.NoError(t, svc.DeleteQuestion(ctx, "vpn", 0, "admin"))
	assert.ErrorIs(t, svc.DeleteQuestion(ctx, "vpn", 5, "admin"), ErrQuestionNotFound)
	quiz, err = svc.Quiz(ctx, "vpn")
	require.NoError(t, err)
	require.Len(t, quiz, 1)
	assert.Equal(t, "VPN client?", quiz[0].Q)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.VersionHistory["vpn"], 2, "each quiz edit snapshots")
}

func TestEstimatedTime(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedGuide(t, store, "vpn")

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Category("vpn").Minutes())

	five := 5
	require.NoError(t, svc.SetEstimatedTime(ctx, "vpn", &five, "admin"))
	neg := -1
	assert.ErrorIs(t, svc.SetEstimatedTime(ctx, "vpn", &neg, "admin"), ErrInvalidEstimate)

	doc, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, doc.Category("vpn").Minutes())
}

func TestHomeAndFAQ(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdateHome(ctx, "# Hi", "", "admin"))
	require.NoError(t, svc.UpdateHome(ctx, "# Hi again", "logo.png", "admin"))
	require.NoError(t, svc.AddFAQ(ctx, "Wifi?", "Use Corp-WiFi."))
	assert.ErrorIs(t, svc.AddFAQ(ctx, "Wifi?", ""), ErrInvalidFAQ)
	require.NoError(t, svc.MoveFAQ(ctx, 2, -1))
	require.NoError(t, svc.UpdateFAQ(ctx, 0, "Outlook?", "Reset your password."))
	require.NoError(t, svc.DeleteFAQ(ctx, 2))
	assert.ErrorIs(t, svc.DeleteFAQ(ctx, 9), ErrFAQNotFound)
	assert.ErrorIs(t, svc.MoveFAQ(ctx, 0, -1), ErrCannotMove)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Home{Logo: "logo.png", Text: "# Hi again"}, doc.Home)
	assert.Equal(t, []models.FAQEntry{
		{Q: "Outlook?", A: "Reset your password."},
		{Q: "Wifi?", A: "Use Corp-WiFi."},
	}, doc.FAQ)
}

func TestAdminsAndLogs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddAdmin(ctx, "maria", "s3cret", "admin"))
	assert.ErrorIs(t, svc.AddAdmin(ctx, "", "x", "admin"), ErrInvalidAdmin)
	assert.ErrorIs(t, svc.AddAdmin(ctx, "ion", "   ", "admin"), ErrInvalidAdmin)
	assert.ErrorIs(t, svc.RemoveAdmin(ctx, "ghost", "admin"), ErrAdminNotFound)

	names, err := svc.Admins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"maria"}, names)

	logs, err := svc.Logs(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "Admin added: maria (admin)", logs[0].Message)

	require.NoError(t, svc.ClearLogs(ctx))
	logs, err = svc.Logs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)

	require.NoError(t, svc.RemoveAdmin(ctx, "maria", "admin"))
	names, err = svc.Admins(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestAddAdmin_StoresBcrypt(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.AddAdmin(ctx, "maria", "s3cret", "admin"))

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, auth.IsBcrypt(doc.Admins["maria"]))
	assert.True(t, auth.VerifyPassword(doc.Admins["maria"], "s3cret"))
}

func TestLogsAreBounded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < models.MaxSystemLogs+5; i++ {
		require.NoError(t, svc.LogEvent(ctx, "INFO", "tick"))
	}
	logs, err := svc.Logs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, models.MaxSystemLogs)
}

const guideYAML = `
key: badge
name: "🎫 7. Badge Access"
description: Get your building badge
estimated_time: 3
steps:
  - title: Visit reception
    text: Bring your ID
  - title: Take a photo
quiz:
  - q: Where do you get the badge?
    answers: [Reception, Canteen]
    correct: 0
`

func TestImportCategoryYAML(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.ImportCategoryYAML(ctx, []byte(guideYAML), "admin")
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Key: "badge", Created: true, Steps: 2, Quiz: 1}, res)

	res, err = svc.ImportCategoryYAML(ctx, []byte(strings.Replace(guideYAML, "Bring your ID", "Bring a photo ID", 1)), "admin")
	require.NoError(t, err)
	assert.False(t, res.Created)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	c := doc.Category("badge")
	require.NotNil(t, c)
	assert.Equal(t, "Bring a photo ID", c.Steps[0].Text)
	assert.Equal(t, 3, c.Minutes())
	require.Len(t, doc.VersionHistory["badge"], 1)
	assert.Equal(t, "Bring your ID", doc.VersionHistory["badge"][0].ContentSnapshot.Steps[0].Text)

	_, err = svc.ImportCategoryYAML(ctx, []byte("key: home\nname: Home\n"), "admin")
	assert.ErrorIs(t, err, ErrReservedKey)
	_, err = svc.ImportCategoryYAML(ctx, []byte("key: x\nname: X\nquiz:\n  - q: q\n    answers: [a]\n"), "admin")
	assert.ErrorIs(t, err, ErrInvalidQuiz)
}

func TestImportDir(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "badge.yaml"), []byte(guideYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	results, err := svc.ImportDir(context.Background(), dir, "cli")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "badge", results[0].Key)
}

func TestSaveMedia(t *testing.T) {
	svc, _ := newTestService(t)

	name, err := svc.SaveMedia("../../etc/screen.PNG", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "screen.PNG", name)
	data, err := os.ReadFile(filepath.Join(svc.MediaDir(), name))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	_, err = svc.SaveMedia("script.sh", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidMedia)
	_, err = svc.SaveMedia(".hidden.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidMedia)
}
