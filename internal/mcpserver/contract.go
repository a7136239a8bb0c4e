package mcpserver

// FileFormatContract describes the canonical .mdc task file format that
// LLM consumers should follow when creating or updating files.
const FileFormatContract = `# TaskFlow File Format Contract

Every task file stored in TaskFlow MUST follow this structure.

## Structure

` + "```" + `markdown
---
description: Short summary           # OPTIONAL – shown in listings
globs:                               # OPTIONAL – YAML list or single string
  - src/**
alwaysApply: false                   # REQUIRED – every file must carry it
type: task                           # OPTIONAL – task | documentation | reference
status: todo                         # OPTIONAL – todo | in-progress | done
priority: medium                     # OPTIONAL – low | medium | high
tags:                                # OPTIONAL – YAML list; used for search
  - sprint-1
---

# Document Title

## 🔧 Task 1.1: First Work Block

### Critérios de Aceite
- [ ] An open task
- [x] A completed task
  - [ ] A subtask (two-space indent)
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `alwaysApply` + "`" + ` is required.** Files without it fail validation and are
   never written.
3. **One ` + "`" + `# ` + "`" + ` heading per file.** It names the document; the file name
   stem is used when it is absent.
4. **Work blocks** are level-2 headings. Headings of the form
   ` + "`" + `🔧 Task N.M: Title` + "`" + ` keep their full text as the block title.
5. **Tasks** are checkbox lines: ` + "`" + `- [ ]` + "`" + ` open, ` + "`" + `- [x]` + "`" + ` done. Subtasks are
   checkbox lines indented by two spaces under their task.
6. **File paths** end with ` + "`" + `.mdc` + "`" + ` and use forward slashes.
7. **Encoding** is UTF-8 with a trailing newline.
8. Prose under unrecognized level-3 headings is not part of the task
   model and is dropped on save; keep structured content in checkboxes.

## Example

` + "```" + `markdown
---
description: Sprint 1 backend work
alwaysApply: false
type: task
status: in-progress
priority: high
tags:
  - backend
---

# Sprint 1 Backend

## 🔧 Task 1.1: API Skeleton

### Critérios de Aceite
- [x] Define routes
- [ ] Wire handlers
  - [ ] Error mapping
  - [x] JSON helpers
` + "```" + `
`
