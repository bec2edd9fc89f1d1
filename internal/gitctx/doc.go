// Package gitctx lists, selects and checks out revisions of a git repository.
//
// It shells out to the git binary. [Repo.ListTags] reads every tag with the
// committer timestamp of the commit it points to (annotated tags are peeled),
// [SelectTop] picks the newest K, and [Repo.Checkout] force-checks-out a
// revision into the working tree. [EnsureClone] clones a repository on first
// use.
package gitctx
