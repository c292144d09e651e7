package config

// Embedded board configurations, keyed by device ID (the value placed in
// ctx under CtxDeviceKey).

// Intel Edison. The I2C6 pads sit in family 7, whose bank only the SCU may
// write.
const cfgEdison = `
pinctrl:
  controllers:
    - name: tangier
      compatible: intel,pinctrl-tangier
      reg: 0xff0c0000
      pins:
        - name: i2c6-scl
          pad-offset: 111
          mode-func: 1
          protected: true
        - name: i2c6-sda
          pad-offset: 112
          mode-func: 1
          protected: true
        - name: sd-wp
          pad-offset: 39
          mode-func: 0
`

var embeddedConfigs = map[string][]byte{
	"edison": []byte(cfgEdison),
}
