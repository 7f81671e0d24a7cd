package model

import "fmt"

// Submission mirrors the judge's recent-status records. Judge data is
// untrusted: any missing field decodes to its zero value and the engine drops
// the record instead of failing the batch.
type Submission struct {
	Verdict             string            `json:"verdict"`
	CreationTimeSeconds int64             `json:"creationTimeSeconds"`
	Problem             SubmissionProblem `json:"problem"`
	Author              SubmissionAuthor  `json:"author"`
}

type SubmissionProblem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
}

type SubmissionAuthor struct {
	Members []SubmissionMember `json:"members"`
}

type SubmissionMember struct {
	Handle string `json:"handle"`
}

// VerdictAccepted is the only verdict that counts towards progress.
const VerdictAccepted = "OK"

// PID renders the problem reference as "<contestId>/<index>", the format node
// pids are stored in.
func (p SubmissionProblem) PID() string {
	return fmt.Sprintf("%d/%s", p.ContestID, p.Index)
}

// Handle returns the first author handle, or "" for a malformed record.
func (s *Submission) Handle() string {
	if len(s.Author.Members) == 0 {
		return ""
	}
	return s.Author.Members[0].Handle
}
