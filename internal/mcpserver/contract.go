package mcpserver

// TemplateSyntax documents the rename template language for LLM consumers.
const TemplateSyntax = `# pastename Template Syntax

A template produces the new base name of a pasted image. The original
extension is always appended, so ` + "`" + `{{fileName}}-shot` + "`" + ` on a PNG pasted into
` + "`" + `Trip.md` + "`" + ` yields ` + "`" + `Trip-shot.png` + "`" + `.

## Placeholders

| Placeholder | Expands to |
| --- | --- |
| ` + "`" + `{{DATE:<format>}}` + "`" + ` | paste time in the given date format |
| ` + "`" + `{{DATE}}` + "`" + ` | paste time as ` + "`" + `YYYY-MM-DD` + "`" + ` |
| ` + "`" + `{{fileName}}` + "`" + ` | base name of the active note, without ` + "`" + `.md` + "`" + ` |
| ` + "`" + `{{imageNameKey}}` + "`" + ` | the note's ` + "`" + `imageNameKey` + "`" + ` frontmatter value, or empty |

Anything else, including unknown ` + "`" + `{{...}}` + "`" + ` tokens, is copied as is.

## Date tokens

| Token | Meaning | Example |
| --- | --- | --- |
| YYYY / YY | year | 2022 / 22 |
| MM / M | month | 03 / 3 |
| DD / D | day of month | 09 / 9 |
| HH / H | hour, 24-hour clock | 17 / 17 |
| hh / h | hour, 12-hour clock | 05 / 5 |
| mm / m | minute | 07 / 7 |
| ss / s | second | 02 / 2 |
| SSS | millisecond | 045 |
| A / a | AM or PM | PM / pm |

Text inside square brackets is literal: ` + "`" + `{{DATE:[day]DD}}` + "`" + ` gives ` + "`" + `day09` + "`" + `.

## Rules

1. The template must not be empty.
2. It must not contain ` + "`" + `/` + "`" + ` or ` + "`" + `\` + "`" + `: images are renamed in place, never moved.
3. Name collisions are not resolved. If the generated name already exists the
   rename fails and nothing is changed.

## Example

Default template ` + "`" + `{{DATE:YYYY.MM.DD-hhmmss}}` + "`" + ` at 2022-10-26 17:27:52 gives
` + "`" + `2022.10.26-052752.png` + "`" + `.
`
