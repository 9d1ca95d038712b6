package ai

import (
	"fmt"
	"strings"

	"github.com/arturoeanton/commitlens/internal/domain"
)

const commitAnalysisSystemPrompt = `You are a Commit Expert Analyzer with deep expertise in software development, version control, and code analysis.

# Your Task
Analyze the provided commit and break it down into logical "SubCommits" - smaller, focused units of work that may be contained within a single commit.

Many commits modify multiple files and address multiple concerns. Identify these distinct logical units of work and analyze each one separately. If a commit truly contains only one logical change, return just one SubCommit.

# Output Format
Respond with JSON only:
{"analysis": [{"title": "...", "idea": "...", "description": "...", "type": "..."}]}

- title: a concise, descriptive title for this specific unit of work
- idea: the core concept or purpose behind this specific change
- description: a detailed technical explanation of what was changed and why it matters
- type: one of FEATURE, BUG, REFACTOR, DOCS, TEST, STYLE, CHORE, MILESTONE, WARNING`

const fileAttributionSystemPrompt = `You are an expert software engineer. Given one SubCommit (a logical unit of work extracted from a larger commit) and the list of files changed by that commit, decide which files belong to this SubCommit.

Respond with JSON only: {"files": ["path/one", "path/two"]}
Only use filenames from the provided list. A file may belong to more than one SubCommit; include every file this SubCommit touches.`

const answerSystemPrompt = `You are CommitLens, an expert on this repository's development history. Answer the user's question using only the provided sub-commit analyses as evidence. Reference commit SHAs and sub-commit titles when relevant. If the provided analyses do not contain the answer, say so.`

const epicSystemPrompt = `You are an expert software engineer. Given a list of semantically related sub-commits, generate a very short, precise title for an epic that groups them together. Focus on the common theme or goal.

Respond with JSON only: {"title": "..."}`

// commitPrompt renders one commit for the decomposition prompt: message,
// author, date and a per-file summary including the patch.
func commitPrompt(commit domain.Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Commit Details\n")
	fmt.Fprintf(&b, "- Message: %s\n", commit.Message)
	fmt.Fprintf(&b, "- Author: %s <%s>\n", commit.Author, commit.AuthorEmail)
	fmt.Fprintf(&b, "- Date: %s\n", commit.Date.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Files Changed: %d\n\n", len(commit.Files))
	for _, f := range commit.Files {
		fmt.Fprintf(&b, "- %s (additions: %d, deletions: %d, changes: %d, status: %s)\n",
			f.Filename, f.Additions, f.Deletions, f.Changes, f.Status)
		if f.Patch != "" {
			fmt.Fprintf(&b, "  patch:\n%s\n", f.Patch)
		}
	}
	return b.String()
}

func fileAttributionPrompt(analysis domain.SubCommitAnalysis, files []domain.File) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# SubCommit\n- Title: %s\n- Idea: %s\n- Description: %s\n- Type: %s\n\n",
		analysis.Title, analysis.Idea, analysis.Description, analysis.Type)
	fmt.Fprintf(&b, "# Changed Files\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s (status: %s, +%d/-%d)\n", f.Filename, f.Status, f.Additions, f.Deletions)
	}
	return b.String()
}

func answerPrompt(query string, sources []domain.SubCommitAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Relevant SubCommits\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "\n## SubCommit %d (commit %s)\n- Title: %s\n- Idea: %s\n- Description: %s\n- Type: %s\n",
			i+1, s.CommitSHA, s.Title, s.Idea, s.Description, s.Type)
	}
	fmt.Fprintf(&b, "\n# Question\n%s\n", query)
	return b.String()
}

func epicPrompt(subcommits []domain.SubCommitAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# SubCommits\n")
	for _, s := range subcommits {
		fmt.Fprintf(&b, "\n## SubCommit\n- Title: %s\n- Idea: %s\n- Type: %s\n", s.Title, s.Idea, s.Type)
	}
	return b.String()
}
