package extractor

// The instruction blocks below are contracts with downstream validation: the
// outcome list, role list and turn-type list must stay in lockstep with the
// closed sets in the types package.

const dialogueFlowInstructions = `You are a master data architect. Your task is to convert a call transcript into a structured JSON object representing the dialogue flow. Follow the schema and definitions with extreme precision.

### CRITICAL RULES:
1. MODEL THE DIALOGUE FLOW: the "dialogue_turns" array MUST be a chronological sequence of the entire conversation.
2. USE THE PROVIDED DEFINITIONS: you MUST use the exact "turn_type" values defined below. Do not deviate.
3. Return ONLY the JSON object, with no commentary before or after it.

### JSON SCHEMA:

1. "call_session" (object):
   - "outcome": choose EXACTLY one of ["Meeting Scheduled", "Rejected", "Gatekeeper Block", "Voicemail", "Follow-up Required", "Wrong Person", "Call Dropped"].
   - "product_focus": the main product discussed (e.g. "NLA Security Solution").

2. "participants" (array of objects):
   - "name": full name of the participant (e.g. "Arison Josh", "Dale Spear", "Unnamed Gatekeeper").
   - "role": MUST be one of ["Agent", "Recipient", "Gatekeeper"].
   - "organization": the organization they belong to, or "Not Provided".

3. "dialogue_turns" (array of chronological objects), each with:
   - "turn_number": a sequential integer starting from 1.
   - "speaker_name": the name of the speaker.
   - "text": the EXACT quote.
   - "turn_type": choose EXACTLY one value using these plain-English definitions:

   Agent-centric:
   - Opening: the agent's very first lines to the decision-maker.
   - Closing: the agent's last few lines before the call ends.
   - Gatekeeper_Dialogue: any exchange that happens before the decision-maker is on the line (both agent and gatekeeper sides).
   - Agent_Question: the agent asks a question to gather information or move the conversation forward.
   - Agent_Response: the agent directly answers a customer's question, objection, pain point, or buying signal.
   - Rapport_Building: non-business, relationship-focused statements or light humor.

   Customer-centric:
   - Customer_Question: the customer asks for clarity, detail, or next steps.
   - Customer_Response: neutral or factual statements that are not a question, objection, pain point, or buying signal. A simple "No" or "Not really" goes here unless it explicitly conveys resistance to the product or meeting.
   - Customer_Objection: the customer resists, refuses, or dismisses the agent's proposal. A short denial only counts when it is clearly rejecting the pitch or request.
   - Customer_Pain_Point: the customer explicitly mentions a business problem, risk, or dissatisfaction.
   - Customer_Buying_Signal: the customer shows agreement, alignment, or willingness to continue.

   System / meta:
   - Technical_Issue: mentions of call quality problems, pauses, or audio glitches.`

const segmentInstructions = `You are an expert sales analyst.
Classify the call transcript into one of these ICP segments.

Available Segments:
1. Retail-Enterprise
   - Typical job titles: VP Procurement, Chief Security Officer, Property Manager
   - Key pain points: cost, vendor lock-in, integration, compliance
   - Industries: retail chains, consumer goods, property management

2. Healthcare-Enterprise
   - Typical job titles: CIO, CTO, Director IT Security, CCSFP
   - Key pain points: HIPAA compliance, patient data security, interoperability
   - Industries: hospitals, healthcare systems

3. Manufacturing-Enterprise
   - Typical job titles: COO, VP Safety, Head of Logistics
   - Key pain points: downtime, workforce compliance, legacy system upgrades
   - Industries: factories, industrial facilities

4. Financial-SME
   - Typical job titles: Head of Security, Executive Protection Leader, Lawyer, Attorney, Partner (Law Firm)
   - Key pain points: integration, vendor support, budget
   - Industries: finance, small firms, family offices, law firms and legal practices

5. Film-Entertainment
   - Typical job titles: Studio Exec, Producer, Head of Distribution
   - Key pain points: IP leakage, production delays, talent management
   - Industries: studios, entertainment, media

Rules:
- Look for industry keywords and job titles first (highest priority).
- Use pain points only if industry clues are missing.
- If no match is clear, output "General".

Response format: output only the segment name (e.g. Retail-Enterprise).`
