package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw YAML for that device
// -----------------------------------------------------------------------------

const cfgIMX296Dev = `
camera:
  - name: cam0
    sensor: imx296
    lanes: 1
    restricted_host: true
    orientation: 0
    rotation: 0
    i2c:
      addr: 0x1a
      module_addr: 0x10
heartbeat:
  interval_ms: 2000
bridge:
  enabled: false
  broker: tcp://localhost:1883
  prefix: vcmipi
`

const cfgIMX327Dev = `
camera:
  - name: cam0
    sensor: imx327
    lanes: 2
    exposure_unit: us
    i2c:
      addr: 0x1a
      module_addr: 0x10
  - name: cam1
    sensor: imx296
    lanes: 1
    orientation: 1
    rotation: 180
    i2c:
      bus: i2c1
      addr: 0x1a
heartbeat:
  interval_ms: 5000
bridge:
  enabled: true
  broker: tcp://localhost:1883
  prefix: vcmipi
`

var embeddedConfigs = map[string][]byte{
	"imx296-dev": []byte(cfgIMX296Dev),
	"imx327-dev": []byte(cfgIMX327Dev),
}
