// Smellscan asks LLMs to classify code smells across the newest releases of a
// repository.
//
// For each selected tag it checks out the working tree, collects eligible
// source files, sends every file to every configured model, and writes one
// JSON artifact per (tag, model) pair as soon as that batch finishes.
//
// Usage:
//
//	smellscan run                         # newest 3 tags, every configured model
//	smellscan run --tags v1.2.0,v1.1.0    # explicit revisions
//	smellscan run --dry-run               # print the stage plan
//	smellscan tags                        # list tags, marking the selected ones
//	smellscan files --tag v1.2.0          # list files a run would analyze
//	smellscan report --format csv         # one row per reported smell
//	smellscan artifacts list              # inspect written artifacts
//	smellscan models doctor               # check model reachability
package main
