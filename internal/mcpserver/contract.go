package mcpserver

// DiagramFormatContract describes the canonical document format that
// LLM consumers should follow when reading or generating diagram JSON.
const DiagramFormatContract = `# BAC4 Diagram Document Contract

Every document in a BAC4 vault is JSON, UTF-8, pretty-printed with
2-space indent. There are two document kinds plus legacy backups.

## Global graph: graph.json

One well-known file at the vault root. The single source of truth for
every node and edge. Diagrams only reference node IDs; they never carry
node definitions of their own.

` + "```" + `json
{
  "version": "3.0.0",
  "nodes": [
    {
      "id": "uuid",
      "type": "person | system | container | component | code | market | organisation | capability",
      "label": "Globally unique display name",
      "description": "...",
      "technology": "...",
      "created": "RFC 3339",
      "updated": "RFC 3339"
    }
  ],
  "edges": [
    {
      "id": "uuid",
      "source": "node id",
      "target": "node id",
      "type": "uses | sends-data-to | depends-on | contains | implements | default",
      "label": "optional interaction description"
    }
  ]
}
` + "```" + `

## Diagram documents: *.diagram.json

` + "```" + `json
{
  "version": "3.0.0",
  "metadata": {
    "name": "Display name",
    "type": "context | container | component | code | landscape",
    "created": "RFC 3339",
    "updated": "RFC 3339"
  },
  "view": {
    "nodes": ["global node ids shown on this diagram"],
    "childLinks": { "node id": "child/diagram.diagram.json" }
  },
  "snapshots": [
    {
      "id": "uuid",
      "label": "Current",
      "layout": { "node id": { "x": 0, "y": 0 } },
      "localNodes": [ { "id": "local-uuid", "...": "sketch nodes scoped to this snapshot" } ],
      "localEdges": []
    }
  ],
  "currentSnapshotId": "uuid"
}
` + "```" + `

## Rules

1. **Node labels are globally unique.** Check with the check_node_name
   tool before inventing one.
2. **Every layout key and edge endpoint must resolve** to a global node
   or a local node in the same snapshot. Local node IDs carry the
   ` + "`" + `local-` + "`" + ` prefix.
3. **Drill-down links** live in ` + "`" + `view.childLinks` + "`" + `; at most one child
   diagram per node.
4. **Snapshots are independent copies.** Editing one never changes
   another; ` + "`" + `currentSnapshotId` + "`" + ` names the one being edited.
5. Files with ` + "`" + `.bak` + "`" + ` suffixes are migration backups; never edit them.
6. Older version strings (1.0, 0.6.0, 1.0.0, 2.5.0) mark legacy
   documents awaiting migration; read-only.
`
