package commands

import (
	"errors"

	"tinygit/pkg/errs"
)

// messages 是每种错误展示给用户的固定文本
var messages = map[errs.Kind]string{
	errs.AlreadyInitialized:    "A tinygit version-control system already exists in the current directory.",
	errs.NotInitialized:        "Not in an initialized tinygit directory.",
	errs.FileNotFound:          "File does not exist.",
	errs.NothingToRemove:       "No reason to remove the file.",
	errs.EmptyMessage:          "Please enter a commit message.",
	errs.NoChanges:             "No changes added to the commit.",
	errs.NotFound:              "Found no commit with that message.",
	errs.FileNotInCommit:       "File does not exist in that commit.",
	errs.AmbiguousOrMissingID:  "No commit with that id exists.",
	errs.ObjectNotFound:        "Object is missing from the repository.",
	errs.UnknownBranch:         "A branch with that name does not exist.",
	errs.BranchExists:          "A branch with that name already exists.",
	errs.CannotDeleteCurrent:   "Cannot remove the current branch.",
	errs.AlreadyOnBranch:       "No need to checkout the current branch.",
	errs.UntrackedFileConflict: "There is an untracked file in the way; delete it, or add and commit it first.",
	errs.UncommittedChanges:    "You have uncommitted changes.",
	errs.CannotMergeSelf:       "Cannot merge a branch with itself.",
}

// Message 把错误渲染成给用户看的一行文本
func Message(err error) string {
	if err == nil {
		return ""
	}

	kind := errs.KindOf(err)
	if kind == errs.UnknownBranch {
		var e *errs.Error
		if errors.As(err, &e) && e.Op == "checkout" {
			return "No such branch exists."
		}
	}
	if msg, ok := messages[kind]; ok {
		return msg
	}
	return err.Error()
}
