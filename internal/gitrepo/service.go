package gitrepo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	shortHashLength  = 7
	changedFileLimit = 10
)

// ErrNoRepository is returned when the configured directory is not inside
// a git working tree.
var ErrNoRepository = errors.New("gitrepo: not a git repository")

var mergePattern = regexp.MustCompile(`^Merge pull request #(\d+) from ([^/\s]+)/(\S+)`)

// CommitInfo is one commit that references a spec.
type CommitInfo struct {
	Hash         string    `json:"hash"`
	FullHash     string    `json:"full_hash"`
	Date         time.Time `json:"date"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	FilesChanged int       `json:"files_changed"`
	ChangedFiles []string  `json:"changed_files"`
}

// PullRequest is a merged pull request recovered from a merge commit.
type PullRequest struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Branch   string    `json:"branch"`
	URL      string    `json:"url,omitempty"`
	MergedAt time.Time `json:"merged_at"`
	Hash     string    `json:"hash"`
}

// Activity is everything the repository knows about one spec.
type Activity struct {
	SpecID       string        `json:"spec_id"`
	Commits      []CommitInfo  `json:"commits"`
	Branches     []string      `json:"branches"`
	PullRequests []PullRequest `json:"pull_requests"`
	Contributors []string      `json:"contributors"`
}

// FilesChanged sums the files touched by every commit.
func (a Activity) FilesChanged() int {
	total := 0
	for _, c := range a.Commits {
		total += c.FilesChanged
	}
	return total
}

// LastCommit returns the newest commit date.
func (a Activity) LastCommit() (time.Time, bool) {
	var latest time.Time
	for _, c := range a.Commits {
		if c.Date.After(latest) {
			latest = c.Date
		}
	}
	return latest, !latest.IsZero()
}

// Service reads spec activity from one repository. The commit log is read
// once and reused until Reset.
type Service struct {
	repoDir    string
	githubRepo string

	mu      sync.Mutex
	repo    *git.Repository
	commits []*object.Commit
	loaded  bool
}

// New returns a service for the repository containing repoDir. githubRepo
// is "owner/name" and only used to build pull request URLs.
func New(repoDir, githubRepo string) *Service {
	return &Service{repoDir: repoDir, githubRepo: strings.Trim(githubRepo, "/")}
}

// Reset drops the cached log so the next call rereads the repository.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repo = nil
	s.commits = nil
	s.loaded = false
}

// Activity collects commits, branches, merged pull requests and
// contributors for specID.
func (s *Service) Activity(specID string) (Activity, error) {
	activity := Activity{
		SpecID:       specID,
		Commits:      make([]CommitInfo, 0),
		Branches:     make([]string, 0),
		PullRequests: make([]PullRequest, 0),
		Contributors: make([]string, 0),
	}
	if specID == "" {
		return activity, nil
	}

	commits, err := s.Commits(specID)
	if err != nil {
		return activity, err
	}
	activity.Commits = commits

	branches, err := s.Branches(specID)
	if err != nil {
		return activity, err
	}
	activity.Branches = branches

	prs, err := s.MergedPullRequests(specID)
	if err != nil {
		return activity, err
	}
	activity.PullRequests = prs

	seen := make(map[string]bool)
	for _, c := range commits {
		if !seen[c.Author] {
			seen[c.Author] = true
			activity.Contributors = append(activity.Contributors, c.Author)
		}
	}
	return activity, nil
}

// Commits returns the commits whose message mentions "#<specID>", newest
// first.
func (s *Service) Commits(specID string) ([]CommitInfo, error) {
	log, err := s.log()
	if err != nil {
		return nil, err
	}
	needle := "#" + specID
	items := make([]CommitInfo, 0)
	for _, commitObj := range log {
		if !strings.Contains(commitObj.Message, needle) {
			continue
		}
		info, err := toCommitInfo(commitObj)
		if err != nil {
			return nil, err
		}
		items = append(items, info)
	}
	return items, nil
}

// Branches lists local and remote branches whose name contains specID.
func (s *Service) Branches(specID string) ([]string, error) {
	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer refs.Close()

	names := make([]string, 0)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		if !name.IsBranch() && !name.IsRemote() {
			return nil
		}
		if short := name.Short(); strings.Contains(short, specID) {
			names = append(names, short)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return names, nil
}

// MergedPullRequests finds "Merge pull request #N from owner/branch"
// commits that mention specID in their message or branch name.
func (s *Service) MergedPullRequests(specID string) ([]PullRequest, error) {
	log, err := s.log()
	if err != nil {
		return nil, err
	}
	prs := make([]PullRequest, 0)
	for _, commitObj := range log {
		pr, ok := ParseMergeMessage(commitObj.Message)
		if !ok || !strings.Contains(commitObj.Message, specID) {
			continue
		}
		pr.Author = commitObj.Author.Name
		pr.MergedAt = commitObj.Author.When
		pr.Hash = shortHash(commitObj.Hash)
		if s.githubRepo != "" {
			pr.URL = fmt.Sprintf("https://github.com/%s/pull/%d", s.githubRepo, pr.Number)
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

// ParseMergeMessage reads the number, branch and title from a GitHub merge
// commit message. The title is the first non-empty line after the subject.
func ParseMergeMessage(message string) (PullRequest, bool) {
	lines := strings.Split(strings.TrimSpace(message), "\n")
	match := mergePattern.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if match == nil {
		return PullRequest{}, false
	}
	number, err := strconv.Atoi(match[1])
	if err != nil {
		return PullRequest{}, false
	}
	pr := PullRequest{Number: number, Branch: match[3]}
	for _, line := range lines[1:] {
		if line = strings.TrimSpace(line); line != "" {
			pr.Title = line
			break
		}
	}
	if pr.Title == "" {
		pr.Title = pr.Branch
	}
	return pr, true
}

func (s *Service) open() (*git.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Service) openLocked() (*git.Repository, error) {
	if s.repo != nil {
		return s.repo, nil
	}
	repo, err := git.PlainOpenWithOptions(s.repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNoRepository, s.repoDir)
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}
	s.repo = repo
	return repo, nil
}

func (s *Service) log() ([]*object.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.commits, nil
	}

	repo, err := s.openLocked()
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			s.commits, s.loaded = nil, true
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	commits := make([]*object.Commit, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		commits = append(commits, commitObj)
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	s.commits, s.loaded = commits, true
	return commits, nil
}

func toCommitInfo(commitObj *object.Commit) (CommitInfo, error) {
	stats, err := commitObj.Stats()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("diff commit %s: %w", shortHash(commitObj.Hash), err)
	}
	files := make([]string, 0, len(stats))
	for _, stat := range stats {
		files = append(files, stat.Name)
	}
	info := CommitInfo{
		Hash:         shortHash(commitObj.Hash),
		FullHash:     commitObj.Hash.String(),
		Date:         commitObj.Author.When,
		Message:      subject(commitObj.Message),
		Author:       commitObj.Author.Name,
		FilesChanged: len(files),
		ChangedFiles: files,
	}
	if len(info.ChangedFiles) > changedFileLimit {
		info.ChangedFiles = info.ChangedFiles[:changedFileLimit]
	}
	return info, nil
}

func subject(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(line)
}

func shortHash(hash plumbing.Hash) string {
	return hash.String()[:shortHashLength]
}
