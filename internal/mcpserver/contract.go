package mcpserver

// DocumentFormatContract describes the canonical document format that
// LLM consumers should follow when creating or updating documents.
const DocumentFormatContract = `# Dagaz Document Format Contract

Every document stored in Dagaz MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # REQUIRED
status: inbox                       # tasks only; inbox|ready|started|done|cancelled
created-at: 2025-01-15              # REQUIRED – date or datetime
updated-at: 2025-01-15T09:30:00     # REQUIRED – date or datetime
due: 2025-02-01                     # OPTIONAL
defer-until: 2025-01-20             # OPTIONAL – hide the task until this date
completed-at: 2025-01-18T17:00:00   # OPTIONAL – set when status becomes done
projects:                           # OPTIONAL – list with exactly one entry
  - "[[quarterly-report]]"
area: "[[work]]"                    # OPTIONAL
tags:                               # OPTIONAL – YAML list
  - errand
type: task                          # containers: project | area
---
Body text in standard Markdown, reproduced byte for byte.
` + "```" + `

## Rules

1. **The metadata block is mandatory.** The ` + "`" + `---` + "`" + ` fence must be the
   very first line of the file; the second fence ends the block and everything
   after it is the body, preserved verbatim.
2. **` + "`" + `title` + "`" + `, ` + "`" + `created-at` + "`" + ` and ` + "`" + `updated-at` + "`" + ` are required** on every
   document; tasks additionally require ` + "`" + `status` + "`" + `.
3. **Dates** are either a bare date (` + "`" + `2025-01-15` + "`" + `) or a datetime
   (` + "`" + `2025-01-15T09:30:00` + "`" + `). Whichever form you write is kept.
4. **References** take three shapes: a wiki link ` + "`" + `[[target]]` + "`" + ` (or
   ` + "`" + `[[target|display]]` + "`" + `), a relative path ` + "`" + `../projects/x.md` + "`" + `, or a bare
   filename ` + "`" + `x.md` + "`" + `. The shape you write is kept.
5. **Tasks** reference their project through the ` + "`" + `projects` + "`" + ` list, which
   must carry exactly one entry.
6. **Unknown metadata fields are preserved**, so tools may attach their own
   keys without losing them on the next save.
7. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes. Archived tasks
   live under ` + "`" + `tasks/archive/` + "`" + `; archival is purely a location, never a field.

## Example

` + "```" + `markdown
---
title: Buy milk
status: ready
created-at: 2025-01-15
updated-at: 2025-01-15
due: 2025-01-16
projects:
  - "[[groceries]]"
tags:
  - errand
---
Get the lactose-free kind.
` + "```" + `
`
