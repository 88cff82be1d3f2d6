// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	MappingNotFoundId Id = iota + 1
	MappingParseErrorId
	DuplicateMappingId
	InputPathNotFoundId
	ModelParseErrorId
	UnresolvedMappingId
	EntryCollisionId
	PackagingFailedId
	OutputPathId
	ConfigLoadFailedId
	InvalidSettingsId
	UnsupportedPredicateId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // never empty: every issue type is documented
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render returns the issue as terminal-styled markdown, followed by its links.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

const docsBase = "https://github.com/thecrown/packgen/blob/main/docs/"

var (
	render = glamour.Render

	mappingNotFoundIssue = &Issue{
		id: MappingNotFoundId,
		mdMsg: `
# Mapping file not found

The fourth argument of "packgen generate" must point at an existing mapping file.

## Things you can try:
- Check the path for typos; it is resolved relative to the working directory
- Create a mapping file, for example "mappings.cue":
~~~cue
mappings: [
	{model: "cow_model", item: "minecraft:leather", custom_model_data: 1},
]
~~~
- Accepted extensions: ".cue", ".json", ".jsonc", ".yaml", ".yml", ".toml"
`,
		docLinks: []HttpLink{docsBase + "mappings.md"},
	}

	mappingParseErrorIssue = &Issue{
		id: MappingParseErrorId,
		mdMsg: `
# Failed to parse the mapping file

The file exists but its syntax or one of its entries is invalid.

## Things you can try:
- Every entry needs "model" and "item", plus "custom_model_data" or "predicates"
- Item identifiers are lower-case "namespace:path" (the namespace defaults to "minecraft")
- "custom_model_data" must be a non-negative integer given as its own field
- Validate the file first: "packgen validate <bbmodelDir> <mappings>"
`,
		docLinks: []HttpLink{docsBase + "mappings.md"},
	}

	duplicateMappingIssue = &Issue{
		id: DuplicateMappingId,
		mdMsg: `
# Duplicate mapping

One model identifier is mapped to two different targets. A model can carry only one override.

## Things you can try:
- Remove one of the entries
- If you need the same geometry under two items, copy the ".bbmodel" under a second name
`,
		docLinks: []HttpLink{docsBase + "mappings.md"},
	}

	inputPathNotFoundIssue = &Issue{
		id: InputPathNotFoundId,
		mdMsg: `
# Input directory not found

"bbmodelDir" and "modelsDir" must both be existing directories.

## Things you can try:
- Check the order of the arguments: "bbmodelDir resourcepackDir modelsDir mappings"
- Create an empty "modelsDir" if you have no hand-written structural models
`,
		docLinks: []HttpLink{docsBase + "usage.md"},
	}

	modelParseErrorIssue = &Issue{
		id: ModelParseErrorId,
		mdMsg: `
# Malformed model files

One or more ".bbmodel" files could not be read. Every failing file is listed above; the others were parsed normally.

## Things you can try:
- Re-save the project from Blockbench in the **Java Block/Item** format
- Only cubes are supported; convert meshes to cubes
- Rotate elements on a single axis by -45, -22.5, 0, 22.5 or 45 degrees
- Make sure every face points at a declared texture
`,
		docLinks: []HttpLink{docsBase + "models.md"},
		extLinks: []HttpLink{"https://www.blockbench.net/wiki/guides/minecraft-style-guide"},
	}

	unresolvedMappingIssue = &Issue{
		id: UnresolvedMappingId,
		mdMsg: `
# Mapping refers to missing models

Some mapping entries name models that no ".bbmodel" file produced. Nothing was written.

## Things you can try:
- Model identifiers are the file path relative to "bbmodelDir", lower-cased, without extension
- Run "packgen validate" to list every identifier that was found
`,
		docLinks: []HttpLink{docsBase + "mappings.md"},
	}

	entryCollisionIssue = &Issue{
		id: EntryCollisionId,
		mdMsg: `
# Conflicting pack entries

Two sources produce the same file in the pack with different content.

## Things you can try:
- Rename the pass-through asset or structural model that shadows a generated file
- Move hand-written overrides into "resourcepackDir"; the base layer is allowed to win
`,
		docLinks: []HttpLink{docsBase + "layers.md"},
	}

	packagingFailedIssue = &Issue{
		id: PackagingFailedId,
		mdMsg: `
# Failed to write the resource pack

The archive could not be written. The previous archive, if any, was left unchanged.

## Things you can try:
- Check the free space on the destination volume
- Make sure no other process holds the archive open
`,
		docLinks: []HttpLink{docsBase + "usage.md"},
	}

	outputPathIssue = &Issue{
		id: OutputPathId,
		mdMsg: `
# Output directory cannot be created

## Things you can try:
- Check that the parent directory of "--output" is writable
- Make sure no regular file sits where a directory is expected
`,
		docLinks: []HttpLink{docsBase + "usage.md"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

## Things you can try:
- Print the configuration directory: "packgen config path"
- Recreate the default file: "packgen config init --force"
- Fields: "namespace", "pack_format", "description", "unreferenced", "format", "workers", "overwrite", "log"
`,
		docLinks: []HttpLink{docsBase + "configuration.md"},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	invalidSettingsIssue = &Issue{
		id: InvalidSettingsId,
		mdMsg: `
# Invalid generator settings

## Things you can try:
- "--unreferenced" accepts "skip" or "include"
- "--format" accepts "legacy" or "items"
- "--namespace" must be lower-case letters, digits, "_", "-" or "."
`,
		docLinks: []HttpLink{docsBase + "configuration.md"},
	}

	unsupportedPredicateIssue = &Issue{
		id: UnsupportedPredicateId,
		mdMsg: `
# Predicate not supported by the items format

The 1.21.4 "items" format dispatches on custom model data only.

## Things you can try:
- Drop the extra "predicates" from the listed entries
- Generate with "--format legacy" for older clients
`,
		docLinks: []HttpLink{docsBase + "mappings.md"},
		extLinks: []HttpLink{"https://minecraft.wiki/w/Items_model_definition"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

## Things you can try:
- Check ownership of the input directories and of the output location
- Avoid writing the pack into a directory owned by another user
`,
		docLinks: []HttpLink{docsBase + "usage.md"},
	}

	issues = map[Id]*Issue{
		mappingNotFoundIssue.Id():      mappingNotFoundIssue,
		mappingParseErrorIssue.Id():    mappingParseErrorIssue,
		duplicateMappingIssue.Id():     duplicateMappingIssue,
		inputPathNotFoundIssue.Id():    inputPathNotFoundIssue,
		modelParseErrorIssue.Id():      modelParseErrorIssue,
		unresolvedMappingIssue.Id():    unresolvedMappingIssue,
		entryCollisionIssue.Id():       entryCollisionIssue,
		packagingFailedIssue.Id():      packagingFailedIssue,
		outputPathIssue.Id():           outputPathIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		invalidSettingsIssue.Id():      invalidSettingsIssue,
		unsupportedPredicateIssue.Id(): unsupportedPredicateIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, v := range issues {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
