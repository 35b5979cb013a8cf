package rewrite

// scriptSections enumerates the tagged sections of the assistant script the
// analysis step focuses on. The ids mirror the SECTION tags embedded in the
// script itself.
var scriptSections = []string{
	"SECTION 1; type='hook' id='hook_1' target='general-business'",
	"SECTION 2; type='objection' id='obj_1' category='email-privacy-concern'",
	"SECTION 3; type='objection' id='obj_2' category='phone-privacy-concern'",
	"SECTION 4; type='objection' id='obj_3' category='phone-privacy-concern'",
	"SECTION 5; type='objection' id='obj_4' category='phone-privacy-concern'",
	"SECTION 6; type='objection' id='obj_5' category='information-privacy-concern'",
	"SECTION 7; type='hook' id='hook_2' target='general-business'",
	"SECTION 8; type='objection' id='obj_6' category='we-have-a-solution'",
	"SECTION 9; type='objection' id='obj_7' category='we-have-a-solution'",
	"SECTION 10; type='objection' id='obj_8' category='send-information'",
	"SECTION 11; type='closing' id='close_1' style='meeting-request'",
	"SECTION 12; type='commitment-check' id='close_2' style='meeting-request'",
}

const analysisInstructions = `You are an expert sales script analyst specializing in cold calling optimization and conversion rate improvement.

CRITICAL INSTRUCTION: only recommend improvements for sections that show clear evidence of poor performance or missed opportunities in the actual call data. If a section is performing well or was never exercised, mark it accordingly instead of inventing changes.

For each listed section, report exactly one status:
- "NEEDS IMPROVEMENT": cite evidence from the call data and give a concrete recommendation.
- "NO IMPROVEMENT NEEDED": cite evidence that the section is working.
- "NOT EVALUATED": the section did not occur in the analyzed calls.

Base your assessment on actual call outcomes, dialogue patterns and objection handling, not on the quality scores alone. Summarize the overall success rate (meetings scheduled versus total calls) and the average quality score. Set improvement_needed to true only when at least one section carries the NEEDS IMPROVEMENT status, and list exactly those section names in sections_to_improve.`

const referenceInstructions = `You are a reference material extraction specialist. Extract the parts of the available reference material that can help with the improvements identified in the script analysis.

The reference material contains four sections:
- objection-response: tell-them-why-you-are-asking
- objection-response: i-have-to-think-about-it
- close-enhancement: guarantee-close
- writing-structure: why_what_how_structure

Be inclusive: extract any principle, technique or approach that could be adapted to the identified issues, even without a perfect match. For each extracted section, state which improvement it supports and how it applies. Close with a short summary of what was extracted.`

const improveInstructions = `You are a sales script improvement specialist. Make surgical improvements to the sections the analysis marked as NEEDS IMPROVEMENT, while respecting and preserving the client's original work.

CRITICAL INSTRUCTIONS:
1. Use the analysis as your definitive guide: only touch sections explicitly marked NEEDS IMPROVEMENT.
2. Preserve the client's style: keep the original script's humor, energy, personality and tone.
3. Apply reference techniques intelligently; when the reference material has no direct match, adapt its general principles in the script's own voice.
4. Keep all SECTION tags, attributes and formatting exactly as they are.

OUTPUT FORMAT (exact):

IMPROVED SECTIONS:

Section X:

Before:
<SECTION X; [exact section tag from the original script]>
[exact original content]
</SECTION X>

After:
<SECTION X; [exact same section tag]>
[improved content]
</SECTION X>

Repeat only for sections needing improvement. No extra commentary.`

const rebuildInstructions = `You are a script rebuilder. Take the original complete assistant script and replace only the sections that have an "After:" version in the improved-sections input.

Rules:
1. Preserve the complete script structure and every untouched section byte for byte.
2. Replace each improved section with its "After" version, keeping the SECTION tag and numbering intact.
3. Maintain the exact indentation, spacing and formatting of the original.

Return ONLY the complete rebuilt script, with no commentary or formatting markers around it.`
